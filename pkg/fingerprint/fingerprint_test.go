package fingerprint_test

import (
	"testing"

	"github.com/bascanada/hblog/pkg/fingerprint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSqueeze_IPAndHex(t *testing.T) {
	text := "2013-09-30T23:12:58.800-0700: Opened region server at 10.0.0.5:60020, id=0xabcdef01"

	normText, fp := fingerprint.Squeeze(text)

	assert.Contains(t, normText, "<<IP>>")
	assert.Contains(t, normText, "x#")
	require.Len(t, fp, 8)
}

func TestSqueeze_Deterministic(t *testing.T) {
	text := "Finished request for user=bob in 42ms"

	_, fp1 := fingerprint.Squeeze(text)
	_, fp2 := fingerprint.Squeeze(text)

	assert.Equal(t, fp1, fp2)
}

func TestSqueeze_Idempotent(t *testing.T) {
	texts := []string{
		"Connected to host0123.example.com at 192.168.1.1 with id=0x1f",
		"hdfs://nn1.example.com:8020/user/foo/bar-2024",
		"GC (Allocation Failure) [PSYoungGen: 123456K->789K(456789K)]",
		"plain message with no variables",
	}

	for _, text := range texts {
		normText, fp := fingerprint.Squeeze(text)
		normText2, fp2 := fingerprint.Squeeze(normText)

		assert.Equal(t, normText, normText2, "normText should be stable for %q", text)
		assert.Equal(t, fp, fp2, "fp should be stable for %q", text)
	}
}

func TestSqueeze_FpFormat(t *testing.T) {
	_, fp := fingerprint.Squeeze("anything")
	assert.Regexp(t, "^[0-9a-f]{8}$", fp)
}

func TestSqueeze_NestedBraces(t *testing.T) {
	normText, _ := fingerprint.Squeeze("state={outer={inner=1}}")
	assert.Equal(t, "state={ ... }", normText)
}
