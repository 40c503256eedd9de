package replay_test

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wardscope/wardscope/internal/replay"
)

// --- fixtures ---

func metadataJSON(t *testing.T, gameLength int64, rows []map[string]any) []byte {
	t.Helper()
	stats, err := json.Marshal(rows)
	require.NoError(t, err)
	md, err := json.Marshal(map[string]any{
		"gameLength":  gameLength,
		"gameVersion": "14.3.558.1234",
		"statsJson":   string(stats),
	})
	require.NoError(t, err)
	return md
}

func buildV1(t *testing.T, md []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("RIOT\x00\x00")
	buf.Write(make([]byte, 256))

	const headerLen = 288
	hdr := []any{
		uint16(headerLen),
		uint32(headerLen + len(md)),
		uint32(headerLen),
		uint32(len(md)),
		uint32(headerLen + len(md)),
		uint32(0),
		uint32(headerLen + len(md)),
	}
	for _, v := range hdr {
		require.NoError(t, binary.Write(&buf, binary.LittleEndian, v))
	}
	buf.Write(md)
	return buf.Bytes()
}

func buildV2(t *testing.T, md []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	buf.WriteString("RIOT\x02\x00")
	buf.Write(bytes.Repeat([]byte{0xAB}, 512)) // payload
	buf.Write(md)
	require.NoError(t, binary.Write(&buf, binary.LittleEndian, uint32(len(md))))
	return buf.Bytes()
}

func writeFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "match.rofl")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func sampleRows() []map[string]any {
	return []map[string]any{
		{"PUUID": "p1", "RIOT_ID_GAME_NAME": "Alpha", "VISION_SCORE": "40", "WARD_PLACED": "20", "WARD_KILLED": "8", "WIN": "Win"},
		{"PUUID": "p2", "RIOT_ID_GAME_NAME": "Bravo", "VISION_SCORE": 25, "WARD_PLACED": 11, "WARD_KILLED": 3, "WIN": false},
	}
}

// --- tests ---

func TestParse_V1(t *testing.T) {
	path := writeFile(t, buildV1(t, metadataJSON(t, 1_800_000, sampleRows())))

	table, err := replay.NewROFLParser(0).Parse(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, int64(1_800_000), table.GameLengthMs)
	assert.Equal(t, "14.3.558.1234", table.GameVersion)
	require.Len(t, table.Players, 2)
	assert.Equal(t, "Alpha", table.Players[0]["RIOT_ID_GAME_NAME"])
	assert.Equal(t, "40", table.Players[0]["VISION_SCORE"])
}

func TestParse_V2_CoercesNonStringValues(t *testing.T) {
	path := writeFile(t, buildV2(t, metadataJSON(t, 1_500_000, sampleRows())))

	table, err := replay.NewROFLParser(0).Parse(context.Background(), path)
	require.NoError(t, err)

	require.Len(t, table.Players, 2)
	assert.Equal(t, "25", table.Players[1]["VISION_SCORE"])
	assert.Equal(t, "false", table.Players[1]["WIN"])
}

func TestParse_Errors(t *testing.T) {
	validMD := metadataJSON(t, 1_000, sampleRows())
	v1 := buildV1(t, validMD)

	tests := []struct {
		name  string
		data  []byte
		cause error
	}{
		{"empty file", []byte{}, replay.ErrCorruptContainer},
		{"bad magic", []byte("NOTAREPLAYFILE"), replay.ErrCorruptContainer},
		{"unknown version", append([]byte("RIOT\x07\x00"), make([]byte, 300)...), replay.ErrUnsupportedVersion},
		{"truncated header", v1[:270], replay.ErrCorruptContainer},
		{"truncated metadata", v1[:len(v1)-10], replay.ErrCorruptContainer},
		{"metadata not json", buildV1(t, []byte("{not json")), replay.ErrCorruptContainer},
		{"no stats", buildV1(t, []byte(`{"gameLength":1}`)), replay.ErrMalformedStats},
		{"stats not an array", buildV1(t, []byte(`{"statsJson":"{}"}`)), replay.ErrMalformedStats},
		{"empty stats", buildV1(t, metadataJSON(t, 1, []map[string]any{})), replay.ErrMalformedStats},
		{"v2 length overflow", append([]byte("RIOT\x02\x00"), 0xFF, 0xFF, 0x00, 0x00), replay.ErrCorruptContainer},
	}

	p := replay.NewROFLParser(0)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.Parse(context.Background(), writeFile(t, tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, replay.ErrParse), "want ErrParse, got %v", err)
			assert.True(t, errors.Is(err, tt.cause), "want %v, got %v", tt.cause, err)
			assert.NotEmpty(t, err.Error())
		})
	}
}

func TestParse_MissingFile(t *testing.T) {
	_, err := replay.NewROFLParser(0).Parse(context.Background(), filepath.Join(t.TempDir(), "nope.rofl"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, replay.ErrFileUnreadable))
}

func TestParse_MetadataTooLarge(t *testing.T) {
	path := writeFile(t, buildV1(t, metadataJSON(t, 1_000, sampleRows())))

	_, err := replay.NewROFLParser(16).Parse(context.Background(), path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, replay.ErrCorruptContainer))
}

func TestParse_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := replay.NewROFLParser(0).Parse(ctx, "irrelevant.rofl")
	assert.ErrorIs(t, err, context.Canceled)
}
