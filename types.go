package vcdiff

// VCDIFF magic bytes and version - RFC 3284 Section 4.1
const (
	VCDIFFMagic1  = 0xD6 // First magic byte: 'V' with high bit set
	VCDIFFMagic2  = 0xC3 // Second magic byte: 'C' with high bit set
	VCDIFFMagic3  = 0xC4 // Third magic byte: 'D' with high bit set
	VCDIFFVersion = 0x00 // Version 0 as defined in RFC 3284
)

// VCDIFFMagic is the expected magic number sequence - RFC 3284 Section 4.1
var VCDIFFMagic = [3]byte{VCDIFFMagic1, VCDIFFMagic2, VCDIFFMagic3}

// Header indicator flags - RFC 3284 Section 4.1
const (
	VCDSecondary = 0x01 // VCD_SECONDARY: secondary compression used
	VCDCodetable = 0x02 // VCD_CODETABLE: custom instruction table used
	VCDAppHeader = 0x04 // VCD_APPHEADER: application header present
)

// Window indicator flags - RFC 3284 Section 4.2
const (
	VCDSource  = 0x01 // VCD_SOURCE: window uses source data
	VCDTarget  = 0x02 // VCD_TARGET: window uses target data (rejected on decode)
	VCDAdler32 = 0x04 // VCD_ADLER32: window includes Adler-32 checksum (non-standard extension)
)

// Delta indicator flags - per-section secondary compression (spec.md §6)
const (
	VCDDataComp = 0x01
	VCDInstComp = 0x02
	VCDAddrComp = 0x04
)

// Variable-length integer encoding constants - RFC 3284 Section 2
const (
	VarintContinuationBit = 0x80 // High bit indicates continuation
	VarintValueMask       = 0x7F // Mask for 7-bit value portion
	VarintShiftIncrement  = 7    // Bits to shift for each byte
	VarintMaxBytes        = 10   // 1-10 bytes covers a full 64-bit value
)

// File format validation constants
const (
	MinimumFileSize = 5 // magic(3) + version(1) + header indicator(1)
)

type Header struct {
	Magic     [3]byte
	Version   byte
	Indicator byte
	SecID     byte
	AppHeader []byte
}

type Window struct {
	WinIndicator             byte   // Win_Indicator - RFC 3284 Section 4.2
	SourceSegmentSize        uint64 // Source segment size - RFC 3284 Section 4.2
	SourceSegmentPosition    uint64 // Source segment position - RFC 3284 Section 4.2
	TargetWindowLength       uint64 // Length of the target window - RFC 3284 Section 4.3
	DeltaIndicator           byte   // Delta_Indicator - RFC 3284 Section 4.3
	DataSectionLength        uint64 // Length of data for ADDs and RUNs - RFC 3284 Section 4.3
	InstructionSectionLength uint64 // Length of instructions section - RFC 3284 Section 4.3
	AddressSectionLength     uint64 // Length of addresses for COPYs - RFC 3284 Section 4.3
	DataSection              []byte // Data section for ADDs and RUNs - RFC 3284 Section 4.3
	InstructionSection       []byte // Instructions and sizes section - RFC 3284 Section 4.3
	AddressSection           []byte // Addresses section for COPYs - RFC 3284 Section 4.3
	Checksum                 uint32 // Adler-32 checksum of target window (VCD_ADLER32 extension)
	HasChecksum              bool   // Whether VCD_ADLER32 bit is set in WinIndicator
}

type ParsedDelta struct {
	Header       Header
	Windows      []Window
	Instructions []RuntimeInstruction
}
