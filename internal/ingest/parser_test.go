package ingest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"databridge/pkg/contracts/domain"
)

func TestParseDelimitedBasic(t *testing.T) {
	rows := ParseDelimited("a,b,c\n1,2,3\n", ',')
	require.Len(t, rows, 1)

	for header, want := range map[string]float64{"a": 1, "b": 2, "c": 3} {
		f, ok := rows[0].Get(header).Float()
		require.True(t, ok, "header %s", header)
		assert.Equal(t, want, f)
	}
}

func TestParseDelimitedDropsMismatchedRows(t *testing.T) {
	contents := "a,b,c\n1,2\n4,5,6\n7,8,9,10\n"
	rows := ParseDelimited(contents, ',')
	require.Len(t, rows, 1)
	f, _ := rows[0].Get("a").Float()
	assert.Equal(t, 4.0, f)
}

func TestParseDelimitedHeaderCanonicalization(t *testing.T) {
	rows := ParseDelimited("\"  Date \"\tPX_LAST\n2024-01-02\t10.5\n", '\t')
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-02", rows[0].Get("date").TextOr(""))
	f, ok := rows[0].Get("px_last").Float()
	require.True(t, ok)
	assert.Equal(t, 10.5, f)
}

func TestParseDelimitedCellTyping(t *testing.T) {
	rows := ParseDelimited("a,b,c\n1.5,text,\n", ',')
	require.Len(t, rows, 1)
	assert.Equal(t, domain.KindNumber, rows[0].Get("a").Kind())
	assert.Equal(t, domain.KindString, rows[0].Get("b").Kind())
	assert.True(t, rows[0].Get("c").IsNull())
}

func TestParseDelimitedEmptyAndHeaderOnly(t *testing.T) {
	assert.Nil(t, ParseDelimited("", ','))
	assert.Nil(t, ParseDelimited("a,b,c\n", ','))
}

func TestParseQuotedRespectsEmbeddedDelimiters(t *testing.T) {
	contents := "junk 1\njunk 2\ndate,volume,px_last\n" +
		"2024-01-02,\"1,234\",9.5\n"
	rows := ParseQuoted(contents, ',', 2)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-01-02", rows[0].Get("date").TextOr(""))
	// The quoted cell keeps its comma and therefore stays a string.
	assert.Equal(t, "1,234", rows[0].Get("volume").TextOr(""))
	f, ok := rows[0].Get("px_last").Float()
	require.True(t, ok)
	assert.Equal(t, 9.5, f)
}

func TestParseQuotedTooShort(t *testing.T) {
	assert.Nil(t, ParseQuoted("one\ntwo\n", ',', 5))
}

func TestSniffDelimiter(t *testing.T) {
	assert.Equal(t, '\t', SniffDelimiter("a\tb\tc"))
	assert.Equal(t, ',', SniffDelimiter("a,b,c"))
	// Mixed lines fall back to comma.
	assert.Equal(t, ',', SniffDelimiter("a\tb,c"))
}
