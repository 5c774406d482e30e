package quickxorhash

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testVectors = []struct {
	size int
	in   string
	out  string
}{
	{0, ``, "AAAAAAAAAAAAAAAAAAAAAAAAAAA="},
	{1, `Sg==`, "SgAAAAAAAAAAAAAAAQAAAAAAAAA="},
	{2, `tbQ=`, "taAFAAAAAAAAAAAAAgAAAAAAAAA="},
	{3, `0pZP`, "0rDEEwAAAAAAAAAAAwAAAAAAAAA="},
	{4, `jRRDVA==`, "jaDAEKgAAAAAAAAABAAAAAAAAAA="},
	{5, `eAV52qE=`, "eChAHrQRCgAAAAAABQAAAAAAAAA="},
	{6, `luBZlaT6`, "lgBHFipBCn0AAAAABgAAAAAAAAA="},
	{7, `qaApEj66lw==`, "qQBFCiTgA11cAgAABwAAAAAAAAA="},
	{8, `/aNzzCFPS/A=`, "/RjFHJgRgicsAR4ACAAAAAAAAAA="},
	{9, `n6Neh7p6fFgm`, "nxiFFw6hCz3wAQsmCQAAAAAAAAA="},
	{10, `J9iPGCbfZSTNyw==`, "J8DGIzBggm+UgQTNUgYAAAAAAAA="},
	{11, `i+UZyUGJKh+ISbk=`, "iyhHBpIRhESo4AOIQ0IuAAAAAAA="},
	{12, `h490d57Pqz5q2rtT`, "h3gEHe7giWeswgdq3MYupgAAAAA="},
	{13, `vPgoDjOfO6fm71RxLw==`, "vMAHChwwg0/s4BTmdQcV4vACAAA="},
	{14, `XoJ1AsoR4fDYJrDqYs4=`, "XhBEHQSgjAiEAx7YPgEs1CEGZwA="},
	{15, `gQaybEqS/4UlDc8e4IJm`, "gDCALNigBEn8oxAlZ8AzPAAOQZg="},
	{16, `2fuxhBJXtpWFe8dOfdGeHw==`, "O9tHLAghgSvYohKFyMMxnNCHaHg="},
	{17, `XBV6YKU9V7yMakZnFIxIkuU=`, "HbplHsBQih5cgReMQYMRzkABRiA="},
	{18, `XJZSOiNO2bmfKnTKD7fztcQX`, "/6ZArHQwAidkIxefQgEdlPGAW8w="},
	{19, `g8VtAh+2Kf4k0kY5tzji2i2zmA==`, "wDNrgwHWAVukwB8kg4YRcnALHIg="},
	{20, `T6LYJIfDh81JrAK309H2JMJTXis=`, "zBTHrspn3mEcohlJdIUAbjGNaNg="},
	{32, `NbYXsp5/K6mR+NmHwExjvWeWDJFnXTKWVlzYHoesp2E=`, "wjuAuWDiq04qDt1R8hHWDDcwVoQ="},
	{40, `YnF4smoy9hox2jBlJ3VUa4qyCRhOZbWcmFGIiszTT4zAdYHsqJazyg==`, "arkIn+ELddmE8N34J9ydyFKW+9w="},
	{56, `zz+Q4zi6wh0fCJUFU9yUOqEVxlIA93gybXHOtXIPwQQ44pW4fyh6BRgc1bOneRuSWp85hwlTJl8=`, "+3Ef4D6yuoC8J+rbFqU1cegverE="},
}

func TestQuickXorHash(t *testing.T) {
	for _, test := range testVectors {
		in, err := base64.StdEncoding.DecodeString(test.in)
		require.NoError(t, err)
		require.Equal(t, test.size, len(in))

		h := New()
		n, err := h.Write(in)
		require.NoError(t, err)
		assert.Equal(t, len(in), n)

		got := base64.StdEncoding.EncodeToString(h.Sum(nil))
		assert.Equal(t, test.out, got, "size %d", test.size)
	}
}

// The hash must be independent of how the input is sliced into writes.
func TestQuickXorHashByBlock(t *testing.T) {
	for _, blockSize := range []int{1, 2, 3, 7, 11, 64, 128} {
		for _, test := range testVectors {
			in, err := base64.StdEncoding.DecodeString(test.in)
			require.NoError(t, err)

			h := New()
			for i := 0; i < len(in); i += blockSize {
				end := i + blockSize
				if end > len(in) {
					end = len(in)
				}
				_, err = h.Write(in[i:end])
				require.NoError(t, err)
			}

			got := base64.StdEncoding.EncodeToString(h.Sum(nil))
			assert.Equal(t, test.out, got, "size %d blockSize %d", test.size, blockSize)
		}
	}
}

func TestReset(t *testing.T) {
	h := New()
	_, err := h.Write([]byte("some leading garbage"))
	require.NoError(t, err)
	h.Reset()

	in, err := base64.StdEncoding.DecodeString(testVectors[8].in)
	require.NoError(t, err)
	_, err = h.Write(in)
	require.NoError(t, err)

	got := base64.StdEncoding.EncodeToString(h.Sum(nil))
	assert.Equal(t, testVectors[8].out, got)
}

func TestSumFunction(t *testing.T) {
	for _, test := range testVectors[:8] {
		in, err := base64.StdEncoding.DecodeString(test.in)
		require.NoError(t, err)
		sum := Sum(in)
		assert.Equal(t, test.out, base64.StdEncoding.EncodeToString(sum[:]))
	}
}

func TestSize(t *testing.T) {
	h := New()
	assert.Equal(t, 20, h.Size())
	assert.Equal(t, 64, h.BlockSize())
}
