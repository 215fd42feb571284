package encoding_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinshukkush/smartsplit/internal/encoding"
)

func TestToUTF8(t *testing.T) {
	type testCase struct {
		name        string
		input       []byte
		want        string
		wantCharset encoding.Charset
	}

	tests := []testCase{
		{
			name:        "UTF8Passthrough",
			input:       []byte(`{"users":[{"name":"Zoë"},{"name":"Renée"}]}`),
			want:        `{"users":[{"name":"Zoë"},{"name":"Renée"}]}`,
			wantCharset: encoding.UTF8,
		},
		{
			name:        "UTF8BOMStripped",
			input:       append([]byte{0xEF, 0xBB, 0xBF}, []byte(`{"currentUser":"Zoë"}`)...),
			want:        `{"currentUser":"Zoë"}`,
			wantCharset: encoding.UTF8BOM,
		},
		{
			// "Zoë" in UTF-16LE with BOM.
			name:        "UTF16LE",
			input:       []byte{0xFF, 0xFE, 'Z', 0x00, 'o', 0x00, 0xEB, 0x00},
			want:        "Zoë",
			wantCharset: encoding.UTF16LE,
		},
		{
			name:        "UTF16BE",
			input:       []byte{0xFE, 0xFF, 0x00, 'Z', 0x00, 'o', 0x00, 0xEB},
			want:        "Zoë",
			wantCharset: encoding.UTF16BE,
		},
		{
			// Windows-1252: ç = 0xE7, ã = 0xE3.
			name: "Latin1",
			input: []byte{
				'D', 'e', 's', 'c', 'r', 'i', 0xE7, 0xE3, 'o', ';',
				'M', 'o', 'n', 't', 'a', 'n', 't', 'e', '\n',
			},
			want:        "Descrição;Montante\n",
			wantCharset: encoding.Windows1252,
		},
		{
			name:        "Empty",
			input:       []byte{},
			want:        "",
			wantCharset: encoding.UTF8,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, charset, err := encoding.ToUTF8(tt.input)

			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
			assert.Equal(t, tt.wantCharset, charset)
		})
	}
}

func TestNewUTF8Reader_LargeInput(t *testing.T) {
	// Longer than the detection sample, so the reader must not lose the tail.
	input := bytes.Repeat([]byte("Café;12,50\n"), 1000)

	r, charset, err := encoding.NewUTF8Reader(bytes.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, encoding.UTF8, charset)

	got, err := io.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, input, got)
}
