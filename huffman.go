package huffman

import (
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/op/go-logging"
)

var log = logging.MustGetLogger("huffman")

// Library output stays quiet unless a program installs its own backend.
func init() {
	logging.SetLevel(logging.WARNING, "huffman")
}

// alphabetSize is the number of distinct 8-bit symbols.
const alphabetSize = 256

// Symbol is one 8-bit code unit of input.
type Symbol = byte

// Config holds configuration for the encoder.
type Config struct {
	MaxInputBytes     int  // Largest accepted input (0 = unlimited)
	DisableChecksum   bool // Skip the xxhash checksum stage in archives
	RawFrequencyStage bool // Never deflate the serialized frequency table
}

// Option is a functional option for configuring the encoder.
type Option func(*Config)

// WithMaxInputBytes rejects inputs longer than n bytes with ErrInputTooLarge.
// Zero or negative values disable the limit.
func WithMaxInputBytes(n int) Option {
	return func(c *Config) {
		if n < 0 {
			n = 0
		}
		c.MaxInputBytes = n
	}
}

// WithChecksum controls whether archives carry an xxhash64 of the original
// bytes. Checksums are on by default.
func WithChecksum(enabled bool) Option {
	return func(c *Config) {
		c.DisableChecksum = !enabled
	}
}

// WithFrequencyCompression controls whether the serialized frequency table
// may be deflated when that makes it smaller. On by default.
func WithFrequencyCompression(enabled bool) Option {
	return func(c *Config) {
		c.RawFrequencyStage = !enabled
	}
}

var (
	// ErrEmptyAlphabet indicates there are no symbols to build a code from.
	ErrEmptyAlphabet = errors.New("empty alphabet")
	// ErrCodeTableMiss indicates a symbol in the input has no assigned code.
	ErrCodeTableMiss = errors.New("symbol has no code")
	// ErrCorruptStream indicates a packed buffer does not decode with the given tree.
	ErrCorruptStream = errors.New("corrupt or mismatched stream")
	// ErrShortBuffer indicates the provided destination buffer is too small.
	ErrShortBuffer = errors.New("short buffer")
	// ErrUntrainedModel indicates Encode was called before a model was trained.
	ErrUntrainedModel = errors.New("model is not trained")
	// ErrInputTooLarge indicates the input exceeds the configured limit.
	ErrInputTooLarge = errors.New("input too large")
)

// Encoder derives a code from its input and compresses it.
type Encoder struct {
	config Config
}

// NewEncoder creates a new encoder with the given options.
func NewEncoder(opts ...Option) *Encoder {
	return &Encoder{config: newConfig(opts)}
}

func newConfig(opts []Option) Config {
	var cfg Config
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c Config) checkInput(data []byte) error {
	if c.MaxInputBytes > 0 && len(data) > c.MaxInputBytes {
		return fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrInputTooLarge, len(data), c.MaxInputBytes)
	}
	return nil
}

// Encode counts symbol frequencies in data, builds the Huffman tree and packs
// data with the resulting code. The returned Archive keeps the tree so it can
// be decoded without rebuilding.
func (e *Encoder) Encode(data []byte) (*Archive, error) {
	if err := e.config.checkInput(data); err != nil {
		return nil, err
	}
	freq := CountFrequencies(data)
	tree, err := BuildTree(freq)
	if err != nil {
		return nil, err
	}
	codes := GenerateCodes(tree)
	packed, err := Pack(data, codes)
	if err != nil {
		return nil, err
	}
	log.Debugf("encoded %d bytes over %d symbols into %d bytes (padding %d)",
		len(data), freq.Len(), len(packed.Bytes), packed.Padding)
	return newArchive(e.config, data, freq, tree, packed), nil
}

func newArchive(cfg Config, data []byte, freq *FrequencyTable, tree *Tree, packed *PackedBuffer) *Archive {
	a := &Archive{
		Frequencies:       freq,
		Packed:            *packed,
		SymbolCount:       uint64(len(data)),
		tree:              tree,
		rawFrequencyStage: cfg.RawFrequencyStage,
	}
	if !cfg.DisableChecksum {
		a.Checksum = xxhash.Sum64(data)
		a.HasChecksum = true
	}
	return a
}
