package vkres

import (
	"github.com/cockroachdb/errors"
	vk "github.com/vulkan-go/vulkan"
)

// ScalarKind is the numeric interpretation of a vertex or texel component.
type ScalarKind int

const (
	Uint ScalarKind = iota
	Sint
	Float
)

func (k ScalarKind) String() string {
	switch k {
	case Uint:
		return "uint"
	case Sint:
		return "sint"
	case Float:
		return "float"
	}
	return "unknown"
}

// ComponentType is a scalar kind together with its size in bytes.
type ComponentType struct {
	Size int
	Kind ScalarKind
}

var (
	Uint8   = ComponentType{1, Uint}
	Int8    = ComponentType{1, Sint}
	Uint16  = ComponentType{2, Uint}
	Int16   = ComponentType{2, Sint}
	Float16 = ComponentType{2, Float}
	Uint32  = ComponentType{4, Uint}
	Int32   = ComponentType{4, Sint}
	Float32 = ComponentType{4, Float}
	Uint64  = ComponentType{8, Uint}
	Int64   = ComponentType{8, Sint}
	Float64 = ComponentType{8, Float}
)

type formatKey struct {
	size  int
	width int
	kind  ScalarKind
}

var formatTable = map[formatKey]vk.Format{
	{1, 1, Uint}: vk.FormatR8Uint,
	{1, 2, Uint}: vk.FormatR8g8Uint,
	{1, 3, Uint}: vk.FormatR8g8b8Uint,
	{1, 4, Uint}: vk.FormatR8g8b8a8Uint,
	{1, 1, Sint}: vk.FormatR8Sint,
	{1, 2, Sint}: vk.FormatR8g8Sint,
	{1, 3, Sint}: vk.FormatR8g8b8Sint,
	{1, 4, Sint}: vk.FormatR8g8b8a8Sint,

	{2, 1, Uint}:  vk.FormatR16Uint,
	{2, 2, Uint}:  vk.FormatR16g16Uint,
	{2, 3, Uint}:  vk.FormatR16g16b16Uint,
	{2, 4, Uint}:  vk.FormatR16g16b16a16Uint,
	{2, 1, Sint}:  vk.FormatR16Sint,
	{2, 2, Sint}:  vk.FormatR16g16Sint,
	{2, 3, Sint}:  vk.FormatR16g16b16Sint,
	{2, 4, Sint}:  vk.FormatR16g16b16a16Sint,
	{2, 1, Float}: vk.FormatR16Sfloat,
	{2, 2, Float}: vk.FormatR16g16Sfloat,
	{2, 3, Float}: vk.FormatR16g16b16Sfloat,
	{2, 4, Float}: vk.FormatR16g16b16a16Sfloat,

	{4, 1, Uint}:  vk.FormatR32Uint,
	{4, 2, Uint}:  vk.FormatR32g32Uint,
	{4, 3, Uint}:  vk.FormatR32g32b32Uint,
	{4, 4, Uint}:  vk.FormatR32g32b32a32Uint,
	{4, 1, Sint}:  vk.FormatR32Sint,
	{4, 2, Sint}:  vk.FormatR32g32Sint,
	{4, 3, Sint}:  vk.FormatR32g32b32Sint,
	{4, 4, Sint}:  vk.FormatR32g32b32a32Sint,
	{4, 1, Float}: vk.FormatR32Sfloat,
	{4, 2, Float}: vk.FormatR32g32Sfloat,
	{4, 3, Float}: vk.FormatR32g32b32Sfloat,
	{4, 4, Float}: vk.FormatR32g32b32a32Sfloat,

	{8, 1, Uint}:  vk.FormatR64Uint,
	{8, 2, Uint}:  vk.FormatR64g64Uint,
	{8, 3, Uint}:  vk.FormatR64g64b64Uint,
	{8, 4, Uint}:  vk.FormatR64g64b64a64Uint,
	{8, 1, Sint}:  vk.FormatR64Sint,
	{8, 2, Sint}:  vk.FormatR64g64Sint,
	{8, 3, Sint}:  vk.FormatR64g64b64Sint,
	{8, 4, Sint}:  vk.FormatR64g64b64a64Sint,
	{8, 1, Float}: vk.FormatR64Sfloat,
	{8, 2, Float}: vk.FormatR64g64Sfloat,
	{8, 3, Float}: vk.FormatR64g64b64Sfloat,
	{8, 4, Float}: vk.FormatR64g64b64a64Sfloat,
}

// FormatFor returns the format of a vector of width components, each size bytes
// wide and of the given kind. Combinations without a format, such as 8-bit
// floats or a width of 5, return ErrUnsupportedFormat.
func FormatFor(size, width int, kind ScalarKind) (vk.Format, error) {
	if f, ok := formatTable[formatKey{size, width, kind}]; ok {
		return f, nil
	}
	return vk.FormatUndefined, errors.Wrapf(ErrUnsupportedFormat, "%d x %d-byte %s", width, size, kind)
}

// Format returns the format of a vector of width components of t.
func (t ComponentType) Format(width int) (vk.Format, error) {
	return FormatFor(t.Size, width, t.Kind)
}
