package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	vcdiff "github.com/fenwick-labs/vcdiff"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "vcdiff",
	Short: "VCDIFF CLI Tool",
	Long: `A command-line tool for working with VCDIFF (RFC 3284) delta files.

VCDIFF is a format for expressing one data stream as a variant of another data stream,
commonly used for binary differencing, compression, and patch applications.`,
	Version: "1.0.0",
}

var verbose bool

func main() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	cobra.OnInitialize(func() {
		if verbose {
			logrus.SetLevel(logrus.DebugLevel)
		}
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCodeFor maps a returned error to the documented exit codes: 0
// success, 1 usage/IO, 2 invalid delta, 3 checksum mismatch.
func exitCodeFor(err error) int {
	switch {
	case errors.Is(err, vcdiff.ErrChecksumMismatch):
		return 3
	case errors.Is(err, vcdiff.ErrInvalidHeader),
		errors.Is(err, vcdiff.ErrInvalidWindow),
		errors.Is(err, vcdiff.ErrWindowTooLarge),
		errors.Is(err, vcdiff.ErrUnsupported),
		errors.Is(err, vcdiff.ErrVarintOverflow):
		return 2
	default:
		return 1
	}
}

func init() {
	rootCmd.AddCommand(encodeCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(deltaCmd)
	rootCmd.AddCommand(recodeCmd)
	rootCmd.AddCommand(mergeCmd)
	rootCmd.AddCommand(headerCmd)
	rootCmd.AddCommand(headersCmd)
	rootCmd.AddCommand(parseCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(configCmd)
}

// streamFlags holds the encode-side tuning flags shared by encode,
// delta, and recode.
type streamFlags struct {
	level               int
	windowSize          int
	sourceWindowSize    int
	duplicateWindowSize int
	instructionBuffer   int
	secondary           string
	noChecksum          bool
}

func (f *streamFlags) register(cmd *cobra.Command) {
	cmd.Flags().IntVar(&f.level, "level", 6, "compression level 0-9")
	cmd.Flags().IntVar(&f.windowSize, "window-size", 0, "target window size in bytes (0 = default)")
	cmd.Flags().IntVar(&f.sourceWindowSize, "source-window-size", 0, "source window size in bytes (0 = default)")
	cmd.Flags().IntVar(&f.duplicateWindowSize, "duplicate-window-size", 0, "target self-match window in bytes (0 = default)")
	cmd.Flags().IntVar(&f.instructionBuffer, "instruction-buffer-size", 0, "IOPT candidate buffer capacity (0 = default)")
	cmd.Flags().StringVar(&f.secondary, "secondary", "none", "secondary compressor: none, flate, huffman, lzma")
	cmd.Flags().BoolVar(&f.noChecksum, "no-checksum", false, "omit the Adler-32 window checksum")
}

func (f *streamFlags) streamConfig() (vcdiff.StreamConfig, error) {
	cfg := vcdiff.DefaultStreamConfig()
	cfg.Level = f.level
	if f.windowSize > 0 {
		cfg.WindowSize = f.windowSize
	}
	if f.sourceWindowSize > 0 {
		cfg.SourceWindowSize = f.sourceWindowSize
	}
	if f.duplicateWindowSize > 0 {
		cfg.DuplicateWindowSize = f.duplicateWindowSize
	}
	if f.instructionBuffer > 0 {
		cfg.IoptCapacity = f.instructionBuffer
	}
	if f.noChecksum {
		cfg.Checksum = vcdiff.ChecksumDisabled
	}
	sec, err := secondaryByName(f.secondary)
	if err != nil {
		return cfg, err
	}
	cfg.Secondary = sec
	return cfg, nil
}

func secondaryByName(name string) (vcdiff.Secondary, error) {
	switch name {
	case "", "none":
		return nil, nil
	case "flate":
		return vcdiff.LookupSecondary(vcdiff.SecFlateID)
	case "huffman":
		return vcdiff.LookupSecondary(vcdiff.SecHuffmanID)
	case "lzma":
		return vcdiff.LookupSecondary(vcdiff.SecLZMAID)
	default:
		return nil, fmt.Errorf("unknown secondary compressor %q: want none, flate, huffman, or lzma", name)
	}
}

// openOutput resolves --output/--stdout into a writer, honoring --force
// against an existing file.
func openOutput(path string, toStdout, force bool) (io.Writer, func() error, error) {
	if toStdout || path == "" {
		return os.Stdout, func() error { return nil }, nil
	}
	if !force {
		if _, err := os.Stat(path); err == nil {
			return nil, nil, fmt.Errorf("output file %q already exists (use --force to overwrite)", path)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

// ---------------------------------------------------------------------
// encode
// ---------------------------------------------------------------------

var encodeCmd = &cobra.Command{
	Use:   "encode <target-file>",
	Short: "Encode a target document into a VCDIFF delta",
	Long: `Encode a target document into a VCDIFF delta, optionally against a
source (base) document. Without --source the delta is self-referential,
only exploiting repetition within the target itself.`,
	Args: cobra.ExactArgs(1),
	RunE: runEncode,
}

var (
	encodeSourceFile string
	encodeOutputFile string
	encodeStdout     bool
	encodeForce      bool
	encodeFlags      streamFlags
)

func init() {
	encodeCmd.Flags().StringVar(&encodeSourceFile, "source", "", "path to source (base) document")
	encodeCmd.Flags().StringVarP(&encodeOutputFile, "output", "o", "", "path to output delta file")
	encodeCmd.Flags().BoolVar(&encodeStdout, "stdout", false, "write the delta to stdout")
	encodeCmd.Flags().BoolVar(&encodeForce, "force", false, "overwrite an existing output file")
	encodeFlags.register(encodeCmd)
}

func runEncode(cmd *cobra.Command, args []string) error {
	target, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading target file: %w", err)
	}
	var source []byte
	if encodeSourceFile != "" {
		source, err = os.ReadFile(encodeSourceFile)
		if err != nil {
			return fmt.Errorf("reading source file: %w", err)
		}
	}
	cfg, err := encodeFlags.streamConfig()
	if err != nil {
		return err
	}

	delta, err := vcdiff.Encode(source, target, cfg)
	if err != nil {
		return fmt.Errorf("encoding delta: %w", err)
	}

	out, closeFn, err := openOutput(encodeOutputFile, encodeStdout, encodeForce)
	if err != nil {
		return err
	}
	defer closeFn()
	_, err = out.Write(delta)
	return err
}

// ---------------------------------------------------------------------
// decode (alias: apply)
// ---------------------------------------------------------------------

var decodeCmd = &cobra.Command{
	Use:     "decode",
	Aliases: []string{"apply"},
	Short:   "Apply a VCDIFF delta to a base document",
	Long: `Apply a VCDIFF delta to a base document to produce the target document.

The base document is the original file, and the delta contains the changes
needed to transform it into the target document.`,
	Example: `  vcdiff decode --source old.txt --delta patch.vcdiff --output new.txt
  vcdiff decode --source old.txt --delta patch.vcdiff  # Output to stdout`,
	RunE: runDecode,
}

var (
	decodeSourceFile string
	decodeDeltaFile  string
	decodeOutputFile string
	decodeStdout     bool
	decodeForce      bool
	decodeCheckOnly  bool
)

func init() {
	decodeCmd.Flags().StringVarP(&decodeSourceFile, "source", "b", "", "path to source (base) document")
	decodeCmd.Flags().StringVarP(&decodeDeltaFile, "delta", "d", "", "path to VCDIFF delta file")
	decodeCmd.Flags().StringVarP(&decodeOutputFile, "output", "o", "", "path to output file (default: stdout)")
	decodeCmd.Flags().BoolVar(&decodeStdout, "stdout", false, "write the result to stdout")
	decodeCmd.Flags().BoolVar(&decodeForce, "force", false, "overwrite an existing output file")
	decodeCmd.Flags().BoolVar(&decodeCheckOnly, "check-only", false, "validate the delta without writing output")
	decodeCmd.MarkFlagRequired("delta")
}

func runDecode(cmd *cobra.Command, args []string) error {
	var source []byte
	var err error
	if decodeSourceFile != "" {
		source, err = os.ReadFile(decodeSourceFile)
		if err != nil {
			return fmt.Errorf("reading source file: %w", err)
		}
	}

	deltaData, err := os.ReadFile(decodeDeltaFile)
	if err != nil {
		return fmt.Errorf("reading delta file: %w", err)
	}

	result, err := vcdiff.Decode(source, deltaData)
	if err != nil {
		return fmt.Errorf("applying delta: %w", err)
	}

	if decodeCheckOnly {
		fmt.Fprintf(os.Stdout, "ok: delta applies cleanly, target is %d bytes\n", len(result))
		return nil
	}

	out, closeFn, err := openOutput(decodeOutputFile, decodeStdout || decodeOutputFile == "", decodeForce)
	if err != nil {
		return err
	}
	defer closeFn()
	_, err = out.Write(result)
	return err
}

// ---------------------------------------------------------------------
// delta: diff two files directly
// ---------------------------------------------------------------------

var deltaCmd = &cobra.Command{
	Use:   "delta <old-file> <new-file>",
	Short: "Compute a VCDIFF delta between two files",
	Long: `Compute a VCDIFF delta transforming old-file into new-file. Equivalent
to "encode --source old-file new-file" but takes both paths positionally.`,
	Args: cobra.ExactArgs(2),
	RunE: runDelta,
}

var (
	deltaOutputFile string
	deltaStdout     bool
	deltaForce      bool
	deltaFlags      streamFlags
)

func init() {
	deltaCmd.Flags().StringVarP(&deltaOutputFile, "output", "o", "", "path to output delta file")
	deltaCmd.Flags().BoolVar(&deltaStdout, "stdout", false, "write the delta to stdout")
	deltaCmd.Flags().BoolVar(&deltaForce, "force", false, "overwrite an existing output file")
	deltaFlags.register(deltaCmd)
}

func runDelta(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading old file: %w", err)
	}
	target, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("reading new file: %w", err)
	}
	cfg, err := deltaFlags.streamConfig()
	if err != nil {
		return err
	}

	delta, err := vcdiff.Encode(source, target, cfg)
	if err != nil {
		return fmt.Errorf("computing delta: %w", err)
	}

	out, closeFn, err := openOutput(deltaOutputFile, deltaStdout, deltaForce)
	if err != nil {
		return err
	}
	defer closeFn()
	_, err = out.Write(delta)
	return err
}

// ---------------------------------------------------------------------
// recode: decode then re-encode a delta under new settings
// ---------------------------------------------------------------------

var recodeCmd = &cobra.Command{
	Use:   "recode <in-delta> <out-delta>",
	Short: "Re-encode an existing delta with different settings",
	Long: `Recode decodes in-delta against --source and re-encodes the resulting
target as out-delta using the given level/window/secondary flags. Useful
for adding secondary compression to, or re-tuning the level of, a delta
produced elsewhere.`,
	Args: cobra.ExactArgs(2),
	RunE: runRecode,
}

var (
	recodeSourceFile string
	recodeFlags      streamFlags
)

func init() {
	recodeCmd.Flags().StringVar(&recodeSourceFile, "source", "", "path to source (base) document")
	recodeFlags.register(recodeCmd)
}

func runRecode(cmd *cobra.Command, args []string) error {
	var source []byte
	var err error
	if recodeSourceFile != "" {
		source, err = os.ReadFile(recodeSourceFile)
		if err != nil {
			return fmt.Errorf("reading source file: %w", err)
		}
	}

	inDelta, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading input delta: %w", err)
	}
	target, err := vcdiff.Decode(source, inDelta)
	if err != nil {
		return fmt.Errorf("decoding input delta: %w", err)
	}

	cfg, err := recodeFlags.streamConfig()
	if err != nil {
		return err
	}
	outDelta, err := vcdiff.Encode(source, target, cfg)
	if err != nil {
		return fmt.Errorf("re-encoding delta: %w", err)
	}

	return os.WriteFile(args[1], outDelta, 0o644)
}

// ---------------------------------------------------------------------
// merge: collapse a chain of deltas applied to a common source
// ---------------------------------------------------------------------

var mergeCmd = &cobra.Command{
	Use:   "merge <delta-file>...",
	Short: "Collapse a chain of sequential deltas into one",
	Long: `Merge applies delta-file... in order, starting from --source, each
decoded against the document produced by the previous step, then encodes
a single delta from --source directly to the final result.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMerge,
}

var (
	mergeSourceFile string
	mergeOutputFile string
	mergeStdout     bool
	mergeForce      bool
	mergeFlags      streamFlags
)

func init() {
	mergeCmd.Flags().StringVar(&mergeSourceFile, "source", "", "path to the common source document")
	mergeCmd.Flags().StringVarP(&mergeOutputFile, "output", "o", "", "path to output merged delta file")
	mergeCmd.Flags().BoolVar(&mergeStdout, "stdout", false, "write the merged delta to stdout")
	mergeCmd.Flags().BoolVar(&mergeForce, "force", false, "overwrite an existing output file")
	mergeFlags.register(mergeCmd)
	mergeCmd.MarkFlagRequired("source")
}

func runMerge(cmd *cobra.Command, args []string) error {
	source, err := os.ReadFile(mergeSourceFile)
	if err != nil {
		return fmt.Errorf("reading source file: %w", err)
	}

	current := source
	for _, path := range args {
		deltaData, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading delta file %q: %w", path, err)
		}
		current, err = vcdiff.Decode(current, deltaData)
		if err != nil {
			return fmt.Errorf("applying %q: %w", path, err)
		}
	}

	cfg, err := mergeFlags.streamConfig()
	if err != nil {
		return err
	}
	merged, err := vcdiff.Encode(source, current, cfg)
	if err != nil {
		return fmt.Errorf("encoding merged delta: %w", err)
	}

	out, closeFn, err := openOutput(mergeOutputFile, mergeStdout, mergeForce)
	if err != nil {
		return err
	}
	defer closeFn()
	_, err = out.Write(merged)
	return err
}

// ---------------------------------------------------------------------
// header / headers
// ---------------------------------------------------------------------

var headerCmd = &cobra.Command{
	Use:   "header <delta-file>",
	Short: "Print a VCDIFF delta's file header",
	Args:  cobra.ExactArgs(1),
	RunE:  runHeader,
}

func runHeader(cmd *cobra.Command, args []string) error {
	deltaData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading delta file: %w", err)
	}
	parsed, err := vcdiff.ParseDelta(deltaData)
	if err != nil {
		return fmt.Errorf("parsing delta: %w", err)
	}
	printHeader(&parsed.Header)
	return nil
}

var headersCmd = &cobra.Command{
	Use:   "headers <delta-file>",
	Short: "Print a VCDIFF delta's file header and every window header",
	Args:  cobra.ExactArgs(1),
	RunE:  runHeaders,
}

func runHeaders(cmd *cobra.Command, args []string) error {
	deltaData, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("reading delta file: %w", err)
	}
	parsed, err := vcdiff.ParseDelta(deltaData)
	if err != nil {
		return fmt.Errorf("parsing delta: %w", err)
	}
	printDelta(parsed)
	return nil
}

// ---------------------------------------------------------------------
// parse / analyze
// ---------------------------------------------------------------------

var parseCmd = &cobra.Command{
	Use:   "parse",
	Short: "Parse a VCDIFF delta and show human-readable representation",
	Long: `Parse a VCDIFF delta file and display its contents in a human-readable format.

This command shows the VCDIFF header information, window details, and
instruction sequences contained in the delta file.`,
	Example: `  vcdiff parse --delta patch.vcdiff
  vcdiff parse -d patch.vcdiff  # Short form`,
	RunE: runParse,
}

var parseDeltaFile string

func init() {
	parseCmd.Flags().StringVarP(&parseDeltaFile, "delta", "d", "", "Path to VCDIFF delta file")
	parseCmd.MarkFlagRequired("delta")
}

func runParse(cmd *cobra.Command, args []string) error {
	deltaData, err := os.ReadFile(parseDeltaFile)
	if err != nil {
		return fmt.Errorf("error reading delta file: %w", err)
	}

	parsed, err := vcdiff.ParseDelta(deltaData)
	if err != nil {
		return fmt.Errorf("error parsing delta: %w", err)
	}

	printDelta(parsed)
	fmt.Println()

	if err := printInstructions(parsed, os.Stdout); err != nil {
		return fmt.Errorf("error printing instructions: %w", err)
	}

	return nil
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Analyze a VCDIFF delta with base document context",
	Long: `Analyze a VCDIFF delta file with access to the base document to provide
detailed information about the instructions and referenced data.

This command shows the same information as 'parse' but also includes
hexdump-style output of the actual data chunks referenced by COPY instructions.`,
	Example: `  vcdiff analyze --base old.txt --delta patch.vcdiff
  vcdiff analyze -b old.txt -d patch.vcdiff  # Short form`,
	RunE: runAnalyze,
}

var (
	analyzeBaseFile  string
	analyzeDeltaFile string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeBaseFile, "base", "b", "", "Path to base document file")
	analyzeCmd.Flags().StringVarP(&analyzeDeltaFile, "delta", "d", "", "Path to VCDIFF delta file")

	analyzeCmd.MarkFlagRequired("base")
	analyzeCmd.MarkFlagRequired("delta")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	baseData, err := os.ReadFile(analyzeBaseFile)
	if err != nil {
		return fmt.Errorf("error reading base file: %w", err)
	}

	deltaData, err := os.ReadFile(analyzeDeltaFile)
	if err != nil {
		return fmt.Errorf("error reading delta file: %w", err)
	}

	parsed, err := vcdiff.ParseDelta(deltaData)
	if err != nil {
		return fmt.Errorf("error parsing delta: %w", err)
	}

	printDelta(parsed)
	fmt.Println()

	if err := printDetailedInstructions(parsed, baseData, os.Stdout); err != nil {
		return fmt.Errorf("error printing detailed instructions: %w", err)
	}

	return nil
}

// ---------------------------------------------------------------------
// config: print the resolved StreamConfig for a set of flags
// ---------------------------------------------------------------------

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective stream configuration for a set of flags",
	RunE:  runConfig,
}

var configFlags streamFlags

func init() {
	configFlags.register(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, err := configFlags.streamConfig()
	if err != nil {
		return err
	}
	secName := "none"
	if cfg.Secondary != nil {
		secName = fmt.Sprintf("0x%02x", cfg.Secondary.ID())
	}
	fmt.Printf("level:                  %d\n", cfg.Level)
	fmt.Printf("window_size:            %d\n", cfg.WindowSize)
	fmt.Printf("source_window_size:     %d\n", cfg.SourceWindowSize)
	fmt.Printf("duplicate_window_size:  %d\n", cfg.DuplicateWindowSize)
	fmt.Printf("iopt_capacity:          %d\n", cfg.IoptCapacity)
	fmt.Printf("secondary:              %s\n", secName)
	fmt.Printf("checksum:               %v\n", cfg.Checksum == vcdiff.ChecksumEnabled)
	return nil
}

// ---------------------------------------------------------------------
// printing helpers
// ---------------------------------------------------------------------

func printDelta(parsed *vcdiff.ParsedDelta) {
	printHeader(&parsed.Header)
	fmt.Printf("  Windows:   %d\n", len(parsed.Windows))

	for i, window := range parsed.Windows {
		fmt.Printf("  Window %d:\n", i)
		printWindow(&window)
	}
}

func printHeader(header *vcdiff.Header) {
	fmt.Printf("VCDIFF Header:\n")
	fmt.Printf("  Magic:     0x%02x 0x%02x 0x%02x\n",
		header.Magic[0], header.Magic[1], header.Magic[2])
	fmt.Printf("  Version:   0x%02x\n", header.Version)
	fmt.Printf("  Indicator: 0x%02x", header.Indicator)
	if header.Indicator != 0 {
		fmt.Printf(" (")
		var flags []string
		if header.Indicator&vcdiff.VCDSecondary != 0 {
			flags = append(flags, "VCD_SECONDARY")
		}
		if header.Indicator&vcdiff.VCDCodetable != 0 {
			flags = append(flags, "VCD_CODETABLE")
		}
		if header.Indicator&vcdiff.VCDAppHeader != 0 {
			flags = append(flags, "VCD_APPHEADER")
		}
		for i, flag := range flags {
			if i > 0 {
				fmt.Printf(", ")
			}
			fmt.Printf("%s", flag)
		}
		fmt.Printf(")")
	}
	fmt.Printf("\n")
	if header.Indicator&vcdiff.VCDSecondary != 0 {
		fmt.Printf("  SecID:     0x%02x\n", header.SecID)
	}
}

func printWindow(window *vcdiff.Window) {
	fmt.Printf("    WinIndicator:   0x%02x", window.WinIndicator)
	if window.WinIndicator != 0 {
		fmt.Printf(" (")
		var flags []string
		if window.WinIndicator&vcdiff.VCDSource != 0 {
			flags = append(flags, "VCD_SOURCE")
		}
		if window.WinIndicator&vcdiff.VCDTarget != 0 {
			flags = append(flags, "VCD_TARGET")
		}
		if window.WinIndicator&vcdiff.VCDAdler32 != 0 {
			flags = append(flags, "VCD_ADLER32")
		}
		for j, flag := range flags {
			if j > 0 {
				fmt.Printf(", ")
			}
			fmt.Printf("%s", flag)
		}
		fmt.Printf(")")
	}
	fmt.Printf("\n")
	fmt.Printf("    SourceSegmentSize:  0x%x (%d)\n", window.SourceSegmentSize, window.SourceSegmentSize)
	fmt.Printf("    SourceSegmentPosition:   0x%x (%d)\n", window.SourceSegmentPosition, window.SourceSegmentPosition)
	fmt.Printf("    TargetWindowLength:  0x%x (%d)\n", window.TargetWindowLength, window.TargetWindowLength)
	fmt.Printf("    DeltaIndicator: 0x%02x\n", window.DeltaIndicator)
	fmt.Printf("    DataSectionLength: 0x%x (%d)\n", window.DataSectionLength, window.DataSectionLength)
	fmt.Printf("    InstructionSectionLength: 0x%x (%d)\n", window.InstructionSectionLength, window.InstructionSectionLength)
	fmt.Printf("    AddressSectionLength: 0x%x (%d)\n", window.AddressSectionLength, window.AddressSectionLength)
	if window.HasChecksum {
		fmt.Printf("    Adler32:     0x%08x\n", window.Checksum)
	}
}

func printDetailedInstructions(parsed *vcdiff.ParsedDelta, baseData []byte, w io.Writer) error {
	fmt.Fprintf(w, "Instructions with Data Context:\n")
	fmt.Fprintf(w, "===============================\n\n")

	for i, instruction := range parsed.Instructions {
		fmt.Fprintf(w, "Instruction %d:\n", i+1)
		fmt.Fprintf(w, "  Type: %s\n", instruction.Type)
		fmt.Fprintf(w, "  Mode: 0x%02x\n", instruction.Mode)
		fmt.Fprintf(w, "  Size: 0x%x (%d bytes)\n", instruction.Size, instruction.Size)

		if instruction.Type == vcdiff.Copy {
			fmt.Fprintf(w, "  Addr: 0x%x (%d)\n", instruction.Addr, instruction.Addr)

			if instruction.Addr < uint64(len(baseData)) {
				endAddr := instruction.Addr + instruction.Size
				if endAddr > uint64(len(baseData)) {
					endAddr = uint64(len(baseData))
				}

				fmt.Fprintf(w, "  Data from base [0x%x:0x%x]:\n", instruction.Addr, endAddr)
				printHexDump(baseData[instruction.Addr:endAddr], w, int(instruction.Addr))
			} else {
				fmt.Fprintf(w, "  Data: <address out of bounds>\n")
			}
		} else if len(instruction.Data) > 0 {
			fmt.Fprintf(w, "  Data:\n")
			printHexDump(instruction.Data, w, 0)
		}

		fmt.Fprintf(w, "\n")
	}

	return nil
}

func printHexDump(data []byte, w io.Writer, baseOffset int) {
	const bytesPerLine = 16

	for i := 0; i < len(data); i += bytesPerLine {
		end := i + bytesPerLine
		if end > len(data) {
			end = len(data)
		}

		line := data[i:end]

		fmt.Fprintf(w, "    %08x  ", baseOffset+i)

		for j := 0; j < bytesPerLine; j++ {
			if j < len(line) {
				fmt.Fprintf(w, "%02x ", line[j])
			} else {
				fmt.Fprintf(w, "   ")
			}

			if j == 7 {
				fmt.Fprintf(w, " ")
			}
		}

		fmt.Fprintf(w, " |")
		for j := 0; j < len(line); j++ {
			if line[j] >= 32 && line[j] <= 126 {
				fmt.Fprintf(w, "%c", line[j])
			} else {
				fmt.Fprintf(w, ".")
			}
		}

		fmt.Fprintf(w, "|\n")
	}
}

func printInstructions(parsed *vcdiff.ParsedDelta, w io.Writer) error {
	fmt.Fprintf(w, "  Offset Code Type1 Size1  @Addr1 + Type2 Size2 @Addr2\n")

	for _, window := range parsed.Windows {
		err := printWindowInstructions(&window, w)
		if err != nil {
			return err
		}
	}

	return nil
}

func printWindowInstructions(window *vcdiff.Window, w io.Writer) error {
	instructionStream := bytes.NewReader(window.InstructionSection)
	addressStream := bytes.NewReader(window.AddressSection)

	offset := 0

	for {
		code, err := instructionStream.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		inst1 := vcdiff.DefaultCodeTable.Get(code, 0)
		inst2 := vcdiff.DefaultCodeTable.Get(code, 1)

		fmt.Fprintf(w, "  %06x %03d  ", offset, code)

		if inst1.Type != vcdiff.NoOp {
			if err := printSingleInstruction(inst1, instructionStream, addressStream, w); err != nil {
				return err
			}
		}

		if inst2.Type != vcdiff.NoOp {
			fmt.Fprintf(w, " + ")
			if err := printSingleInstruction(inst2, instructionStream, addressStream, w); err != nil {
				return err
			}
		}

		fmt.Fprintf(w, "\n")
		offset++
	}

	return nil
}

func printSingleInstruction(inst vcdiff.Instruction, instructionStream *bytes.Reader, addressStream *bytes.Reader, w io.Writer) error {
	var typeStr string
	switch inst.Type {
	case vcdiff.Add:
		typeStr = "ADD"
	case vcdiff.Copy:
		typeStr = fmt.Sprintf("CPY_%d", inst.Mode)
	case vcdiff.Run:
		typeStr = "RUN"
	case vcdiff.NoOp:
		typeStr = "NOOP"
	default:
		typeStr = fmt.Sprintf("UNK_%02x", inst.Type)
	}

	size := uint64(inst.Size)
	if size == 0 && inst.Type != vcdiff.NoOp {
		var err error
		size, err = vcdiff.ReadVarint(instructionStream)
		if err != nil {
			return err
		}
	}

	var addrStr string
	if inst.Type == vcdiff.Copy {
		switch inst.Mode {
		case vcdiff.SelfMode:
			addr, err := vcdiff.ReadVarint(addressStream)
			if err != nil {
				return err
			}
			addrStr = fmt.Sprintf("S@%d", addr)
		case vcdiff.HereMode:
			offset, err := vcdiff.ReadVarint(addressStream)
			if err != nil {
				return err
			}
			addrStr = fmt.Sprintf("H@%d", offset)
		default:
			if inst.Mode < 2+vcdiff.NearCacheSize {
				offset, err := vcdiff.ReadVarint(addressStream)
				if err != nil {
					return err
				}
				addrStr = fmt.Sprintf("N%d@%d", inst.Mode-2, offset)
			} else {
				b, err := addressStream.ReadByte()
				if err != nil {
					return err
				}
				addrStr = fmt.Sprintf("S%d@%d", inst.Mode-2-vcdiff.NearCacheSize, b)
			}
		}
	}

	if inst.Type == vcdiff.Copy {
		fmt.Fprintf(w, "%s %6d %s", typeStr, size, addrStr)
	} else {
		fmt.Fprintf(w, "%s %6d", typeStr, size)
	}

	return nil
}
