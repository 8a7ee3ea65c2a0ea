// Huffman compressor / decompressor
//
// huff compress [-o outfile] [-dict dictfile] [-config file] [-d] filename
//   Creates outfile, or if no -o option, filename.compressed
//
// huff decompress [-o outfile] [-config file] [-d] filename.compressed
//   Creates outfile, or if no -o option, filename
//
// huff roundtrip [-dict dictfile] [-print] [-config file] [-d] filename
//   Compresses to filename.compressed, reads it back, decodes it with the
//   tree built during compression and writes filename.decompressed
//
// huff dict [-o outfile] filename
//   Lists the symbols of filename by descending frequency
//
// huff lz77 [-o outfile] [-window n] [-config file] [-d] filename
//   Creates outfile, or if no -o option, filename.lz77, with the sliding
//   window coder instead of Huffman codes
//
// huff unlz77 [-o outfile] [-config file] [-d] filename.lz77
//   Creates outfile, or if no -o option, filename
package main

import (
	"bufio"
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/op/go-logging"

	"github.com/seiflotfy/huffman"
	"github.com/seiflotfy/huffman/lz77"
)

const progName = "huff"

var log = logging.MustGetLogger(progName)

const usage = "Usage: huff [compress|decompress|roundtrip|dict|lz77|unlz77] [-o outfile] [-dict dictfile] [-window n] [-config file] [-print] [-d] infile"

const lz77Suffix = ".lz77"

var (
	errUsage             = errors.New(usage)
	errSourceUnavailable = errors.New("source unavailable")
)

var leveledLogBackend logging.LeveledBackend

func startLogging(w io.Writer) {
	backend := logging.NewLogBackend(w, progName+": ", 0)
	formatSpec := "%{level:8s} %{module:-8s} | %{message}"
	formatter := logging.MustStringFormatter(formatSpec)
	formatted := logging.NewBackendFormatter(backend, formatter)
	leveled := logging.AddModuleLevel(formatted)
	leveled.SetLevel(logging.INFO, "")
	logging.SetBackend(leveled)
	leveledLogBackend = leveled
}

func main() {
	startLogging(os.Stderr)
	if err := run(os.Args[1:], os.Stdout); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

type invocation struct {
	command    string
	inFilename string
	outFile    string
	dictFile   string
	print      bool
	window     int
	cfg        fileConfig
}

func parseArgs(args []string) (*invocation, error) {
	if len(args) == 0 {
		return nil, errUsage
	}
	inv := &invocation{command: args[0]}
	switch inv.command {
	case "compress", "decompress", "roundtrip", "dict", "lz77", "unlz77":
	default:
		return nil, errUsage
	}

	flags := flag.NewFlagSet(progName+" "+inv.command, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	var configFile string
	var debugLogging bool
	flags.StringVar(&inv.outFile, "o", "", "")
	flags.StringVar(&inv.dictFile, "dict", "", "")
	flags.StringVar(&configFile, "config", "", "")
	flags.BoolVar(&inv.print, "print", false, "")
	flags.IntVar(&inv.window, "window", 0, "")
	flags.BoolVar(&debugLogging, "debug", false, "")
	flags.BoolVar(&debugLogging, "d", false, "")
	if err := flags.Parse(args[1:]); err != nil {
		return nil, fmt.Errorf("%w: %v", errUsage, err)
	}
	if flags.NArg() != 1 {
		return nil, errUsage
	}
	inv.inFilename = flags.Arg(0)

	cfg, err := loadConfig(configFile)
	if err != nil {
		return nil, err
	}
	if debugLogging {
		cfg.LogLevel = "DEBUG"
	}
	if inv.dictFile == "" {
		inv.dictFile = cfg.DictionaryFile
	}
	if inv.window == 0 {
		inv.window = cfg.LZ77Window
	}
	inv.cfg = cfg
	return inv, nil
}

func run(args []string, stdout io.Writer) error {
	inv, err := parseArgs(args)
	if err != nil {
		return err
	}
	if level, err := inv.cfg.level(); err == nil && leveledLogBackend != nil {
		leveledLogBackend.SetLevel(level, "")
	}

	switch inv.command {
	case "compress":
		out := inv.outFile
		if out == "" {
			out = inv.inFilename + inv.cfg.Suffix
		}
		_, err = compressFile(inv.inFilename, out, inv.dictFile, inv.cfg)
	case "decompress":
		out := inv.outFile
		if out == "" {
			if !strings.HasSuffix(inv.inFilename, inv.cfg.Suffix) {
				return fmt.Errorf("file to decompress must be named something%s", inv.cfg.Suffix)
			}
			out = strings.TrimSuffix(inv.inFilename, inv.cfg.Suffix)
		}
		err = decompressFile(inv.inFilename, out)
	case "roundtrip":
		err = roundTrip(inv, stdout)
	case "dict":
		err = dictionary(inv, stdout)
	case "lz77":
		out := inv.outFile
		if out == "" {
			out = inv.inFilename + lz77Suffix
		}
		err = lz77File(inv.inFilename, out, inv.window)
	case "unlz77":
		out := inv.outFile
		if out == "" {
			if !strings.HasSuffix(inv.inFilename, lz77Suffix) {
				return fmt.Errorf("file to decompress must be named something%s", lz77Suffix)
			}
			out = strings.TrimSuffix(inv.inFilename, lz77Suffix)
		}
		err = unlz77File(inv.inFilename, out)
	}
	return err
}

func readSource(filename string) ([]byte, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errSourceUnavailable, err)
	}
	return data, nil
}

func compressFile(inFilename, outFilename, dictFilename string, cfg fileConfig) (*huffman.Archive, error) {
	data, err := readSource(inFilename)
	if err != nil {
		return nil, err
	}
	log.Info("Compressing " + inFilename)
	archive, err := huffman.NewEncoder(cfg.encoderOptions()...).Encode(data)
	if err != nil {
		return nil, fmt.Errorf("compressing %s: %w", inFilename, err)
	}

	outputFile, err := os.Create(outFilename)
	if err != nil {
		return nil, fmt.Errorf("opening %s for writing: %w", outFilename, err)
	}
	w := bufio.NewWriter(outputFile)
	n, err := archive.WriteTo(w)
	if err == nil {
		err = w.Flush()
	}
	if cerr := outputFile.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("writing %s: %w", outFilename, err)
	}
	log.Infof("Compressed %s to %s: %d -> %d bytes", inFilename, outFilename, len(data), n)

	if dictFilename != "" {
		if err := writeDictionaryFile(dictFilename, archive.Frequencies); err != nil {
			return nil, err
		}
		log.Infof("Compression dictionary saved to %s", dictFilename)
	}
	return archive, nil
}

func loadArchive(filename string) (*huffman.Archive, error) {
	inputFile, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errSourceUnavailable, err)
	}
	defer inputFile.Close()
	var archive huffman.Archive
	if _, err := archive.ReadFrom(bufio.NewReader(inputFile)); err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	return &archive, nil
}

func decompressFile(inFilename, outFilename string) error {
	log.Info("Decompressing " + inFilename)
	archive, err := loadArchive(inFilename)
	if err != nil {
		return err
	}
	data, err := archive.Decompress()
	if err != nil {
		return fmt.Errorf("decompressing %s: %w", inFilename, err)
	}
	if err := os.WriteFile(outFilename, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outFilename, err)
	}
	log.Infof("Decompressed %s to %s: %d bytes", inFilename, outFilename, len(data))
	return nil
}

// roundTrip compresses a file and decodes the written buffer in the same
// run, using the tree and padding count held in memory.
func roundTrip(inv *invocation, stdout io.Writer) error {
	compressed := inv.inFilename + inv.cfg.Suffix
	archive, err := compressFile(inv.inFilename, compressed, inv.dictFile, inv.cfg)
	if err != nil {
		return err
	}
	tree, err := archive.Tree()
	if err != nil {
		return err
	}

	log.Info("Decompressing " + compressed)
	loaded, err := loadArchive(compressed)
	if err != nil {
		return err
	}
	packed := huffman.PackedBuffer{Bytes: loaded.Packed.Bytes, Padding: archive.Packed.Padding}
	data, err := huffman.Unpack(&packed, tree)
	if err != nil {
		return fmt.Errorf("decompressing %s: %w", compressed, err)
	}

	out := inv.outFile
	if out == "" {
		out = inv.inFilename + ".decompressed"
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", out, err)
	}
	log.Infof("Decompressed file saved to %s", out)
	if inv.print {
		fmt.Fprintf(stdout, "Decompressed text is: %s\n", data)
	}
	return nil
}

func dictionary(inv *invocation, stdout io.Writer) error {
	data, err := readSource(inv.inFilename)
	if err != nil {
		return err
	}
	freq := huffman.CountFrequencies(data)
	if inv.outFile == "" {
		return writeDictionary(stdout, freq)
	}
	return writeDictionaryFile(inv.outFile, freq)
}

// writeDictionary lists one symbol per line, most frequent first.
func writeDictionary(w io.Writer, freq *huffman.FrequencyTable) error {
	var buf bytes.Buffer
	for _, e := range freq.ByFrequency() {
		fmt.Fprintf(&buf, "%q\t%d\n", rune(e.Symbol), e.Count)
	}
	_, err := w.Write(buf.Bytes())
	return err
}

func writeDictionaryFile(filename string, freq *huffman.FrequencyTable) error {
	var buf bytes.Buffer
	if err := writeDictionary(&buf, freq); err != nil {
		return err
	}
	if err := os.WriteFile(filename, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filename, err)
	}
	return nil
}

func lz77File(inFilename, outFilename string, window int) error {
	data, err := readSource(inFilename)
	if err != nil {
		return err
	}
	var opts []lz77.Option
	if window > 0 {
		opts = append(opts, lz77.WithWindowSize(window))
	}
	c := lz77.NewCompressor(opts...)
	log.Infof("Compressing %s with a %d byte window", inFilename, c.WindowSize())
	packed, err := c.Compress(data)
	if err != nil {
		return fmt.Errorf("compressing %s: %w", inFilename, err)
	}
	if err := os.WriteFile(outFilename, packed, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outFilename, err)
	}
	log.Infof("Compressed %s to %s: %d -> %d bytes", inFilename, outFilename, len(data), len(packed))
	return nil
}

func unlz77File(inFilename, outFilename string) error {
	packed, err := readSource(inFilename)
	if err != nil {
		return err
	}
	log.Info("Decompressing " + inFilename)
	data, err := lz77.Decompress(packed)
	if err != nil {
		return fmt.Errorf("decompressing %s: %w", inFilename, err)
	}
	if err := os.WriteFile(outFilename, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", outFilename, err)
	}
	log.Infof("Decompressed %s to %s: %d bytes", inFilename, outFilename, len(data))
	return nil
}
