package core

import (
	"fmt"
	"io"

	"github.com/HiddyTiddy/bottom/types"
	"github.com/HiddyTiddy/bottom/vm"
	"github.com/fxamacker/cbor/v2"
)

// ImageVersion is the current program image format.
const ImageVersion = 1

// ImageExt is the file extension used for compiled program images.
const ImageExt = ".bottomc"

type Encoder[T any] interface {
	Encode(T) error
}

type Decoder[T any] interface {
	Decode(T) error
}

// ProgramImage is the serialised form of a decoded program.
type ProgramImage struct {
	Version uint16            `cbor:"1,keyasint"`
	Hash    []byte            `cbor:"2,keyasint"`
	Code    []wireInstruction `cbor:"3,keyasint"`
}

type wireInstruction struct {
	_  struct{} `cbor:",toarray"`
	Op byte
	N  int64
}

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("core: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

func toWire(p *vm.Program) []wireInstruction {
	code := p.Instructions()
	out := make([]wireInstruction, len(code))
	for i, inst := range code {
		out[i] = wireInstruction{Op: byte(inst.Op), N: inst.N}
	}
	return out
}

func fromWire(code []wireInstruction) (*vm.Program, error) {
	instrs := make([]vm.Instruction, len(code))
	for i, w := range code {
		instrs[i] = vm.Instruction{Op: vm.Opcode(w.Op), N: w.N}
	}
	return vm.NewProgram(instrs...)
}

// NewProgramImage builds the image of p, stamped with its hash.
func NewProgramImage(p *vm.Program, hasher Hasher[*vm.Program]) *ProgramImage {
	h := hasher.Hash(p)
	return &ProgramImage{
		Version: ImageVersion,
		Hash:    h.ToSlice(),
		Code:    toWire(p),
	}
}

// Program validates the image and rebuilds its program.
func (img *ProgramImage) Program(hasher Hasher[*vm.Program]) (*vm.Program, error) {
	if img.Version != ImageVersion {
		return nil, fmt.Errorf("unsupported image version %d", img.Version)
	}
	want, err := types.HashFromBytes(img.Hash)
	if err != nil {
		return nil, fmt.Errorf("image hash: %w", err)
	}
	p, err := fromWire(img.Code)
	if err != nil {
		return nil, fmt.Errorf("image code: %w", err)
	}
	if got := hasher.Hash(p); got != want {
		return nil, fmt.Errorf("image hash mismatch: header %s, code %s", want.Prefix(), got.Prefix())
	}
	return p, nil
}

type CBORProgramEncoder struct {
	w      io.Writer
	hasher Hasher[*vm.Program]
}

func NewCBORProgramEncoder(w io.Writer) *CBORProgramEncoder {
	return &CBORProgramEncoder{
		w:      w,
		hasher: DefaultProgramHasher{},
	}
}

func (e CBORProgramEncoder) Encode(p *vm.Program) error {
	return cborEncMode.NewEncoder(e.w).Encode(NewProgramImage(p, e.hasher))
}

type CBORProgramDecoder struct {
	r      io.Reader
	hasher Hasher[*vm.Program]
}

func NewCBORProgramDecoder(r io.Reader) *CBORProgramDecoder {
	return &CBORProgramDecoder{
		r:      r,
		hasher: DefaultProgramHasher{},
	}
}

// Decode reads one image and stores its program in *p.
func (d *CBORProgramDecoder) Decode(p **vm.Program) error {
	var img ProgramImage
	if err := cbor.NewDecoder(d.r).Decode(&img); err != nil {
		return fmt.Errorf("decode program image: %w", err)
	}
	prog, err := img.Program(d.hasher)
	if err != nil {
		return fmt.Errorf("decode program image: %w", err)
	}
	*p = prog
	return nil
}

// MarshalProgram returns the canonical CBOR image of p.
func MarshalProgram(p *vm.Program) ([]byte, error) {
	return cborEncMode.Marshal(NewProgramImage(p, DefaultProgramHasher{}))
}

// UnmarshalProgram parses and verifies a CBOR image.
func UnmarshalProgram(data []byte) (*vm.Program, error) {
	var img ProgramImage
	if err := cbor.Unmarshal(data, &img); err != nil {
		return nil, fmt.Errorf("unmarshal program image: %w", err)
	}
	p, err := img.Program(DefaultProgramHasher{})
	if err != nil {
		return nil, fmt.Errorf("unmarshal program image: %w", err)
	}
	return p, nil
}
