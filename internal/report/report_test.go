package report

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/withObsrvr/sms-stats/internal/ledger"
)

var contacts = []ledger.Contact{
	{Address: "+3", ContactName: "carol", CountTo: 1, LengthTo: 10},
	{Address: "+1", ContactName: "Alice", CountTo: 2, LengthTo: 20, CountFrom: 3, LengthFrom: 30},
	{Address: "+2", ContactName: "null", CountFrom: 1, LengthFrom: 4},
}

func addresses(cs []ledger.Contact) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Address
	}
	return out
}

func TestRenderText(t *testing.T) {
	var buf bytes.Buffer
	err := Render(&buf, contacts[:2], Summary{}, Options{Format: FormatText})
	require.NoError(t, err)

	want := "carol (+3)\n" +
		"To (Messages/Chars): 1/10\n" +
		"From (Messages/Chars): 0/0\n" +
		"\n" +
		"Alice (+1)\n" +
		"To (Messages/Chars): 2/20\n" +
		"From (Messages/Chars): 3/30\n"
	assert.Equal(t, want, buf.String())
}

func TestRenderTextEmpty(t *testing.T) {
	out, err := RenderBytes(nil, Summary{}, Options{})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestRenderJSON(t *testing.T) {
	sum := Summary{RunID: "r1", Source: "sms.xml", Lines: 5, Messages: 4, Errors: 1, Contacts: 3}
	out, err := RenderBytes(contacts, sum, Options{Format: FormatJSON, Sort: SortAddress})
	require.NoError(t, err)

	var got jsonReport
	require.NoError(t, json.Unmarshal(out, &got))
	assert.Equal(t, "r1", got.Summary.RunID)
	assert.Equal(t, int64(1), got.Summary.Errors)
	assert.Equal(t, []string{"+1", "+2", "+3"}, addresses(got.Contacts))
	assert.Equal(t, contacts[1], got.Contacts[0])
}

func TestRenderParquet(t *testing.T) {
	generated := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	sum := Summary{RunID: "r1", Source: "s3://b/sms.xml", GeneratedAt: generated}

	for _, compression := range []string{"", "snappy", "none"} {
		t.Run("compression="+compression, func(t *testing.T) {
			out, err := RenderBytes(contacts, sum, Options{
				Format:      FormatParquet,
				Sort:        SortMessages,
				Compression: compression,
			})
			require.NoError(t, err)

			rows, err := parquet.Read[ContactRow](bytes.NewReader(out), int64(len(out)))
			require.NoError(t, err)
			require.Len(t, rows, 3)

			assert.Equal(t, int32(1), rows[0].Rank)
			assert.Equal(t, "+1", rows[0].Address)
			assert.Equal(t, int64(30), rows[0].LengthFrom)
			assert.Equal(t, "r1", rows[2].RunID)
			assert.Equal(t, "s3://b/sms.xml", rows[2].Source)
			assert.True(t, generated.Equal(rows[1].GeneratedAt), "got %v", rows[1].GeneratedAt)
		})
	}
}

func TestRenderParquetUnknownCompression(t *testing.T) {
	_, err := RenderBytes(contacts, Summary{}, Options{Format: FormatParquet, Compression: "lzma"})
	assert.Error(t, err)
}

func TestSort(t *testing.T) {
	tests := []struct {
		order SortOrder
		want  []string
	}{
		{SortLedger, []string{"+3", "+1", "+2"}},
		{SortMessages, []string{"+1", "+2", "+3"}},
		{SortAddress, []string{"+1", "+2", "+3"}},
		{SortName, []string{"+1", "+3", "+2"}},
	}

	for _, tt := range tests {
		t.Run(string(tt.order), func(t *testing.T) {
			assert.Equal(t, tt.want, addresses(Sort(contacts, tt.order)))
		})
	}

	// The input is never reordered in place.
	assert.Equal(t, []string{"+3", "+1", "+2"}, addresses(contacts))
}

func TestParseOptions(t *testing.T) {
	f, err := ParseFormat("")
	require.NoError(t, err)
	assert.Equal(t, FormatText, f)

	f, err = ParseFormat("PARQUET")
	require.NoError(t, err)
	assert.Equal(t, FormatParquet, f)
	assert.Equal(t, "parquet", f.Extension())

	_, err = ParseFormat("csv")
	assert.Error(t, err)

	o, err := ParseSortOrder("")
	require.NoError(t, err)
	assert.Equal(t, SortLedger, o)

	_, err = ParseSortOrder("random")
	assert.Error(t, err)
}

func TestChecksum(t *testing.T) {
	sum := ComputeChecksum([]byte("report"))
	assert.True(t, VerifyChecksum([]byte("report"), sum))
	assert.False(t, VerifyChecksum([]byte("other"), sum))
	assert.Equal(t, "sha256:", sum[:7])
}
