// Package replay reads per-player statistics out of League of Legends .rofl replay files.
package replay

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strconv"

	"github.com/wardscope/wardscope/pkg/models"
)

// Parser extracts the statistics table from a stored replay file.
// Implementations must be safe for concurrent use.
type Parser interface {
	Parse(ctx context.Context, path string) (models.StatsTable, error)
}

const (
	magicLen     = 6
	signatureLen = 256
	// v1 header: u16 header length followed by six u32 offsets/lengths.
	v1HeaderLen = 2 + 6*4

	DefaultMaxMetadataBytes = 16 << 20
)

var (
	magicV1 = []byte("RIOT\x00\x00")
	magicV2 = []byte("RIOT\x02\x00")
)

type v1Header struct {
	HeaderLength        uint16
	FileLength          uint32
	MetadataOffset      uint32
	MetadataLength      uint32
	PayloadHeaderOffset uint32
	PayloadHeaderLength uint32
	PayloadOffset       uint32
}

type metadata struct {
	GameLength  int64  `json:"gameLength"`
	GameVersion string `json:"gameVersion"`
	StatsJSON   string `json:"statsJson"`
}

// ROFLParser implements Parser for v1 and v2 .rofl containers.
type ROFLParser struct {
	maxMetadata int64
}

// NewROFLParser creates a parser that refuses metadata blocks larger than maxMetadataBytes.
func NewROFLParser(maxMetadataBytes int64) *ROFLParser {
	if maxMetadataBytes <= 0 {
		maxMetadataBytes = DefaultMaxMetadataBytes
	}
	return &ROFLParser{maxMetadata: maxMetadataBytes}
}

func (p *ROFLParser) Parse(ctx context.Context, path string) (models.StatsTable, error) {
	if err := ctx.Err(); err != nil {
		return models.StatsTable{}, err
	}

	f, err := os.Open(path)
	if err != nil {
		return models.StatsTable{}, parseErr(ErrFileUnreadable, "replay file could not be opened: %v", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return models.StatsTable{}, parseErr(ErrFileUnreadable, "replay file could not be read: %v", err)
	}

	raw, err := p.readMetadata(f, info.Size())
	if err != nil {
		return models.StatsTable{}, err
	}

	if err := ctx.Err(); err != nil {
		return models.StatsTable{}, err
	}
	return decodeMetadata(raw)
}

func (p *ROFLParser) readMetadata(r io.ReaderAt, size int64) ([]byte, error) {
	magic := make([]byte, magicLen)
	if _, err := r.ReadAt(magic, 0); err != nil {
		return nil, parseErr(ErrCorruptContainer, "replay file is truncated: missing header")
	}

	switch {
	case bytes.Equal(magic, magicV1):
		return p.readV1(r, size)
	case bytes.Equal(magic, magicV2):
		return p.readV2(r, size)
	case bytes.Equal(magic[:4], magicV1[:4]):
		return nil, parseErr(ErrUnsupportedVersion, "unsupported replay version %d", magic[4])
	default:
		return nil, parseErr(ErrCorruptContainer, "not a replay file: bad magic bytes")
	}
}

func (p *ROFLParser) readV1(r io.ReaderAt, size int64) ([]byte, error) {
	hdrOff := int64(magicLen + signatureLen)
	if size < hdrOff+v1HeaderLen {
		return nil, parseErr(ErrCorruptContainer, "replay file is truncated: incomplete header")
	}

	var hdr v1Header
	sr := io.NewSectionReader(r, hdrOff, v1HeaderLen)
	if err := binary.Read(sr, binary.LittleEndian, &hdr); err != nil {
		return nil, parseErr(ErrCorruptContainer, "replay header unreadable: %v", err)
	}

	off, n := int64(hdr.MetadataOffset), int64(hdr.MetadataLength)
	if n == 0 {
		return nil, parseErr(ErrMalformedStats, "replay has no metadata block")
	}
	if off+n > size {
		return nil, parseErr(ErrCorruptContainer, "replay file is truncated: metadata ends at %d, file is %d bytes", off+n, size)
	}
	return p.readBlock(r, off, n)
}

func (p *ROFLParser) readV2(r io.ReaderAt, size int64) ([]byte, error) {
	if size < magicLen+4 {
		return nil, parseErr(ErrCorruptContainer, "replay file is truncated: missing metadata length")
	}

	lenBuf := make([]byte, 4)
	if _, err := r.ReadAt(lenBuf, size-4); err != nil {
		return nil, parseErr(ErrCorruptContainer, "replay metadata length unreadable: %v", err)
	}
	n := int64(binary.LittleEndian.Uint32(lenBuf))
	if n == 0 {
		return nil, parseErr(ErrMalformedStats, "replay has no metadata block")
	}
	off := size - 4 - n
	if off < magicLen {
		return nil, parseErr(ErrCorruptContainer, "replay file is truncated: metadata length %d exceeds file", n)
	}
	return p.readBlock(r, off, n)
}

func (p *ROFLParser) readBlock(r io.ReaderAt, off, n int64) ([]byte, error) {
	if n > p.maxMetadata {
		return nil, parseErr(ErrCorruptContainer, "replay metadata block too large: %d bytes", n)
	}
	buf := make([]byte, n)
	if _, err := r.ReadAt(buf, off); err != nil && !errors.Is(err, io.EOF) {
		return nil, parseErr(ErrCorruptContainer, "replay metadata unreadable: %v", err)
	}
	return buf, nil
}

func decodeMetadata(raw []byte) (models.StatsTable, error) {
	var md metadata
	if err := json.Unmarshal(raw, &md); err != nil {
		return models.StatsTable{}, parseErr(ErrCorruptContainer, "replay metadata is not valid JSON: %v", err)
	}
	if md.StatsJSON == "" {
		return models.StatsTable{}, parseErr(ErrMalformedStats, "replay metadata has no player statistics")
	}

	var rows []map[string]any
	if err := json.Unmarshal([]byte(md.StatsJSON), &rows); err != nil {
		return models.StatsTable{}, parseErr(ErrMalformedStats, "player statistics are malformed: %v", err)
	}
	if len(rows) == 0 {
		return models.StatsTable{}, parseErr(ErrMalformedStats, "player statistics table is empty")
	}

	table := models.StatsTable{
		GameLengthMs: md.GameLength,
		GameVersion:  md.GameVersion,
		Players:      make([]models.PlayerStats, 0, len(rows)),
	}
	for _, row := range rows {
		table.Players = append(table.Players, toPlayerStats(row))
	}
	return table, nil
}

// toPlayerStats flattens a decoded row to strings. Replays store every stat as a
// string, but numbers and booleans are accepted too.
func toPlayerStats(row map[string]any) models.PlayerStats {
	ps := make(models.PlayerStats, len(row))
	for k, v := range row {
		switch val := v.(type) {
		case string:
			ps[k] = val
		case float64:
			ps[k] = strconv.FormatFloat(val, 'f', -1, 64)
		case bool:
			ps[k] = strconv.FormatBool(val)
		}
	}
	return ps
}

var _ Parser = (*ROFLParser)(nil)
