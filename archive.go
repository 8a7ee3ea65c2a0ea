package huffman

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/flate"
)

const (
	archiveMagic   = "HUFA"
	archiveVersion = uint16(1)

	stageFrequencies = "frequencies"
	stagePayload     = "payload"
	stageChecksum    = "checksum"

	stageFrequenciesParamRaw   = uint8(1) // uvarint count, then symbol + uvarint count pairs
	stageFrequenciesParamFlate = uint8(2) // flate(raw frequencies payload)

	maxArchiveStages     = 64
	maxStagePayloadBytes = 1 << 30 // 1 GiB
	maxFrequenciesBytes  = 1 + alphabetSize*(1+binary.MaxVarintLen64)
	checksumBytes        = 8
)

// Wire format (version 1):
//
//	magic[4] = "HUFA"
//	version  = uint16 little-endian
//	stageCnt = uint16 little-endian
//	repeat stageCnt times:
//	  nameLen  = uint8
//	  paramLen = uint16 little-endian
//	  dataLen  = uint32 little-endian
//	  name     = nameLen bytes
//	  params   = paramLen bytes
//	  payload  = dataLen bytes
//
// Stages:
//
//	frequencies (required) params [encoding]; payload uvarint(n) then n x (symbol u8, uvarint count)
//	payload     (required) params [padding u8, uvarint(symbolCount)]; payload = packed bytes
//	checksum    (optional) payload = xxhash64 of the original bytes, little-endian
//
// Unknown stages are skipped via dataLen framing. The tree is rebuilt from the
// frequencies, so encoder and decoder must agree on BuildTree's tie-break.
type wireStageHeader struct {
	name     string
	paramLen uint16
	dataLen  uint32
}

func writeBytes(w io.Writer, b []byte) (int64, error) {
	n, err := w.Write(b)
	if err != nil {
		return int64(n), err
	}
	if n != len(b) {
		return int64(n), io.ErrShortWrite
	}
	return int64(n), nil
}

func writeStage(w io.Writer, name string, params []byte, payload []byte) (int64, error) {
	if len(name) == 0 || len(name) > 255 {
		return 0, fmt.Errorf("invalid stage name length: %d", len(name))
	}
	if len(params) > int(^uint16(0)) {
		return 0, fmt.Errorf("stage params too large for %q: %d", name, len(params))
	}
	if len(payload) > maxStagePayloadBytes {
		return 0, fmt.Errorf("stage payload too large for %q: %d", name, len(payload))
	}

	header := make([]byte, 0, 7+len(name))
	header = append(header, uint8(len(name)))
	header = binary.LittleEndian.AppendUint16(header, uint16(len(params)))
	header = binary.LittleEndian.AppendUint32(header, uint32(len(payload)))
	header = append(header, name...)

	var total int64
	for _, b := range [][]byte{header, params, payload} {
		n, err := writeBytes(w, b)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func readStageHeader(r io.Reader) (wireStageHeader, int64, error) {
	var total int64
	var fixed [7]byte
	n, err := io.ReadFull(r, fixed[:])
	total += int64(n)
	if err != nil {
		return wireStageHeader{}, total, err
	}
	nameLen := fixed[0]
	if nameLen == 0 {
		return wireStageHeader{}, total, fmt.Errorf("stage name length must be > 0")
	}
	paramLen := binary.LittleEndian.Uint16(fixed[1:3])
	dataLen := binary.LittleEndian.Uint32(fixed[3:7])
	if dataLen > uint32(maxStagePayloadBytes) {
		return wireStageHeader{}, total, fmt.Errorf("stage payload too large: %d", dataLen)
	}

	nameBytes := make([]byte, int(nameLen))
	n, err = io.ReadFull(r, nameBytes)
	total += int64(n)
	if err != nil {
		return wireStageHeader{}, total, err
	}

	return wireStageHeader{
		name:     string(nameBytes),
		paramLen: paramLen,
		dataLen:  dataLen,
	}, total, nil
}

// Archive holds a packed buffer together with what is needed to decode it.
type Archive struct {
	Frequencies *FrequencyTable // Table the decoding tree is built from
	Packed      PackedBuffer    // Encoded bits and padding count
	SymbolCount uint64          // Number of symbols encoded
	Checksum    uint64          // xxhash64 of the original bytes, if HasChecksum
	HasChecksum bool

	tree              *Tree
	rawFrequencyStage bool
}

// Tree returns the tree that decodes a. Archives loaded with ReadFrom carry
// their tree already; any other archive gets one from a shared cache keyed
// by frequency table. Tree never modifies a.
func (a *Archive) Tree() (*Tree, error) {
	if a.tree != nil {
		return a.tree, nil
	}
	if a.Frequencies == nil {
		return nil, ErrEmptyAlphabet
	}
	return cachedTree(a.Frequencies)
}

// DecodedLen reports the decoded length in bytes.
func (a *Archive) DecodedLen() int {
	return int(a.SymbolCount)
}

// AppendAll appends the decoded bytes to dst.
func (a *Archive) AppendAll(dst []byte) ([]byte, error) {
	tree, err := a.Tree()
	if err != nil {
		return dst, err
	}
	start := len(dst)
	dst, err = AppendUnpacked(dst, &a.Packed, tree)
	if err != nil {
		return dst, err
	}
	decoded := dst[start:]
	if uint64(len(decoded)) != a.SymbolCount {
		return dst, fmt.Errorf("%w: decoded %d symbols, expected %d", ErrCorruptStream, len(decoded), a.SymbolCount)
	}
	if a.HasChecksum {
		if sum := xxhash.Sum64(decoded); sum != a.Checksum {
			return dst, fmt.Errorf("%w: checksum %016x, expected %016x", ErrCorruptStream, sum, a.Checksum)
		}
	}
	return dst, nil
}

// Decompress returns the decoded bytes.
func (a *Archive) Decompress() ([]byte, error) {
	return a.AppendAll(make([]byte, 0, a.DecodedLen()))
}

// DecompressTo decodes into buffer and returns the number of bytes written.
func (a *Archive) DecompressTo(buffer []byte) (int, error) {
	if uint64(len(buffer)) < a.SymbolCount {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, a.SymbolCount, len(buffer))
	}
	out, err := a.AppendAll(buffer[:0])
	if err != nil {
		return 0, err
	}
	return len(out), nil
}

// SpaceUsed returns the number of bytes the archive occupies when written,
// excluding stage framing.
func (a *Archive) SpaceUsed() int {
	n := len(a.Packed.Bytes) + len(encodePayloadParams(a))
	if a.Frequencies != nil {
		freqPayload, _, err := encodeFrequenciesStage(a)
		if err != nil {
			freqPayload = encodeFrequencies(a.Frequencies)
		}
		n += len(freqPayload)
	}
	if a.HasChecksum {
		n += checksumBytes
	}
	return n
}

func encodeFrequencies(ft *FrequencyTable) []byte {
	buf := make([]byte, 0, 1+ft.Len()*3)
	buf = binary.AppendUvarint(buf, uint64(ft.Len()))
	for _, s := range ft.Symbols() {
		buf = append(buf, s)
		buf = binary.AppendUvarint(buf, ft.Count(s))
	}
	return buf
}

func decodeFrequencies(payload []byte) (*FrequencyTable, error) {
	n, read := binary.Uvarint(payload)
	if read <= 0 {
		return nil, fmt.Errorf("invalid symbol count")
	}
	if n == 0 || n > alphabetSize {
		return nil, fmt.Errorf("symbol count out of range: %d", n)
	}
	offset := read
	counts := make(map[Symbol]uint64, int(n))
	prev := -1
	for i := 0; i < int(n); i++ {
		if offset >= len(payload) {
			return nil, fmt.Errorf("frequencies underrun at entry %d", i)
		}
		s := payload[offset]
		offset++
		if int(s) <= prev {
			return nil, fmt.Errorf("symbols not ascending at entry %d: %d", i, s)
		}
		prev = int(s)
		count, read := binary.Uvarint(payload[offset:])
		if read <= 0 {
			return nil, fmt.Errorf("invalid count at entry %d", i)
		}
		offset += read
		counts[s] = count
	}
	if offset != len(payload) {
		return nil, fmt.Errorf("frequencies trailing bytes: %d", len(payload)-offset)
	}
	return NewFrequencyTable(counts)
}

func encodeFrequenciesStage(a *Archive) ([]byte, uint8, error) {
	raw := encodeFrequencies(a.Frequencies)
	if a.rawFrequencyStage {
		return raw, stageFrequenciesParamRaw, nil
	}
	flated, err := encodeFlatePayload(raw)
	if err != nil {
		return nil, 0, err
	}
	if len(flated) < len(raw) {
		return flated, stageFrequenciesParamFlate, nil
	}
	return raw, stageFrequenciesParamRaw, nil
}

func encodeFlatePayload(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.BestCompression)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeFlatePayload(payload []byte, limit int) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(payload))
	defer r.Close()

	raw, err := io.ReadAll(io.LimitReader(r, int64(limit)+1))
	if err != nil {
		return nil, err
	}
	if len(raw) > limit {
		return nil, fmt.Errorf("flate payload expands beyond limit")
	}
	return raw, nil
}

func decodeFrequenciesStage(dst *Archive, params []byte, payload []byte) error {
	if len(params) != 1 {
		return fmt.Errorf("frequencies params length must be 1: %d", len(params))
	}
	raw := payload
	switch params[0] {
	case stageFrequenciesParamRaw:
	case stageFrequenciesParamFlate:
		var err error
		raw, err = decodeFlatePayload(payload, maxFrequenciesBytes)
		if err != nil {
			return fmt.Errorf("inflate frequencies: %w", err)
		}
	default:
		return fmt.Errorf("unknown frequencies encoding: %d", params[0])
	}
	ft, err := decodeFrequencies(raw)
	if err != nil {
		return err
	}
	dst.Frequencies = ft
	return nil
}

func encodePayloadParams(a *Archive) []byte {
	params := make([]byte, 0, 1+binary.MaxVarintLen64)
	params = append(params, a.Packed.Padding)
	return binary.AppendUvarint(params, a.SymbolCount)
}

func decodePayloadStage(dst *Archive, params []byte, payload []byte) error {
	if len(params) < 2 {
		return fmt.Errorf("payload params too short: %d", len(params))
	}
	count, n := binary.Uvarint(params[1:])
	if n <= 0 || 1+n != len(params) {
		return fmt.Errorf("invalid symbol count in payload params")
	}
	dst.Packed = PackedBuffer{
		Bytes:   payload,
		Padding: params[0],
	}
	dst.SymbolCount = count
	return nil
}

func decodeChecksumStage(dst *Archive, payload []byte) error {
	if len(payload) != checksumBytes {
		return fmt.Errorf("checksum payload must be %d bytes: %d", checksumBytes, len(payload))
	}
	dst.Checksum = binary.LittleEndian.Uint64(payload)
	dst.HasChecksum = true
	return nil
}

func validateArchiveStructure(a *Archive) error {
	if a.Frequencies == nil || a.Frequencies.Len() == 0 {
		return ErrEmptyAlphabet
	}
	if a.Packed.Padding > 7 {
		return fmt.Errorf("padding out of range: %d", a.Packed.Padding)
	}
	if len(a.Packed.Bytes) == 0 && a.Packed.Padding != 0 {
		return fmt.Errorf("padding %d on empty payload", a.Packed.Padding)
	}
	if bits := a.Packed.BitLen(); bits < a.SymbolCount {
		return fmt.Errorf("%d bits cannot hold %d symbols", bits, a.SymbolCount)
	}
	return nil
}

// WriteTo serializes the Archive to an io.Writer.
func (a *Archive) WriteTo(w io.Writer) (int64, error) {
	if err := validateArchiveStructure(a); err != nil {
		return 0, fmt.Errorf("invalid archive: %w", err)
	}

	freqPayload, freqParam, err := encodeFrequenciesStage(a)
	if err != nil {
		return 0, err
	}

	type stage struct {
		name    string
		params  []byte
		payload []byte
	}
	stages := []stage{
		{
			name:    stageFrequencies,
			params:  []byte{freqParam},
			payload: freqPayload,
		},
		{
			name:    stagePayload,
			params:  encodePayloadParams(a),
			payload: a.Packed.Bytes,
		},
	}
	if a.HasChecksum {
		stages = append(stages, stage{
			name:    stageChecksum,
			payload: binary.LittleEndian.AppendUint64(nil, a.Checksum),
		})
	}

	header := make([]byte, 0, 8)
	header = append(header, archiveMagic...)
	header = binary.LittleEndian.AppendUint16(header, archiveVersion)
	header = binary.LittleEndian.AppendUint16(header, uint16(len(stages)))
	total, err := writeBytes(w, header)
	if err != nil {
		return total, err
	}

	for _, stage := range stages {
		n, err := writeStage(w, stage.name, stage.params, stage.payload)
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// ReadFrom deserializes an Archive from an io.Reader.
func (a *Archive) ReadFrom(r io.Reader) (int64, error) {
	var total int64
	var header [8]byte
	n, err := io.ReadFull(r, header[:])
	total += int64(n)
	if err != nil {
		return total, fmt.Errorf("read archive header at offset 0: %w", err)
	}
	if string(header[:4]) != archiveMagic {
		return total, fmt.Errorf("invalid archive magic at offset 0: %q", string(header[:4]))
	}
	if version := binary.LittleEndian.Uint16(header[4:6]); version != archiveVersion {
		return total, fmt.Errorf("unsupported archive version at offset 4: %d", version)
	}
	stageCount := binary.LittleEndian.Uint16(header[6:8])
	if stageCount == 0 || stageCount > maxArchiveStages {
		return total, fmt.Errorf("invalid stage count at offset 6: %d", stageCount)
	}

	var tmp Archive
	seenStages := make(map[string]bool, stageCount)

	for i := 0; i < int(stageCount); i++ {
		headerOffset := total
		header, n, err := readStageHeader(r)
		total += n
		if err != nil {
			return total, fmt.Errorf("read stage header at offset %d (stage index %d): %w", headerOffset, i, err)
		}
		if seenStages[header.name] {
			return total, fmt.Errorf("duplicate stage %q at stage index %d", header.name, i)
		}

		params := make([]byte, int(header.paramLen))
		paramsOffset := total
		nParams, err := io.ReadFull(r, params)
		total += int64(nParams)
		if err != nil {
			return total, fmt.Errorf("read stage %q params at offset %d (stage index %d): %w", header.name, paramsOffset, i, err)
		}

		switch header.name {
		case stageFrequencies, stagePayload, stageChecksum:
			payloadOffset := total
			payload, err := io.ReadAll(io.LimitReader(r, int64(header.dataLen)))
			total += int64(len(payload))
			if err == nil && len(payload) != int(header.dataLen) {
				err = io.ErrUnexpectedEOF
			}
			if err != nil {
				return total, fmt.Errorf("read stage %q payload at offset %d (stage index %d): %w", header.name, payloadOffset, i, err)
			}

			switch header.name {
			case stageFrequencies:
				err = decodeFrequenciesStage(&tmp, params, payload)
			case stagePayload:
				err = decodePayloadStage(&tmp, params, payload)
			case stageChecksum:
				err = decodeChecksumStage(&tmp, payload)
			}
			if err != nil {
				return total, fmt.Errorf("decode stage %q at offset %d (stage index %d): %w", header.name, payloadOffset, i, err)
			}
			seenStages[header.name] = true

		default:
			skipOffset := total
			skipped, err := io.CopyN(io.Discard, r, int64(header.dataLen))
			total += skipped
			if err != nil {
				return total, fmt.Errorf("skip unknown stage %q at offset %d (stage index %d): %w", header.name, skipOffset, i, err)
			}
		}
	}

	for _, stageName := range []string{stageFrequencies, stagePayload} {
		if !seenStages[stageName] {
			return total, fmt.Errorf("missing required stage %q", stageName)
		}
	}
	if err := validateArchiveStructure(&tmp); err != nil {
		return total, fmt.Errorf("invalid archive structure: %w", err)
	}
	tree, err := cachedTree(tmp.Frequencies)
	if err != nil {
		return total, fmt.Errorf("rebuild tree: %w", err)
	}
	tmp.tree = tree
	log.Debugf("read archive: %d symbols, %d distinct, %d packed bytes",
		tmp.SymbolCount, tmp.Frequencies.Len(), len(tmp.Packed.Bytes))

	*a = tmp
	return total, nil
}
