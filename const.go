package pof

import "strconv"

// Intrinsic type tags. Every encoded value starts with one of these, a tiny
// value tag, or a non-negative user type id.
const (
	TInt16              = -1
	TInt32              = -2
	TInt64              = -3
	TInt128             = -4
	TFloat32            = -5
	TFloat64            = -6
	TFloat128           = -7
	TDecimal32          = -8
	TDecimal64          = -9
	TDecimal128         = -10
	TBoolean            = -11
	TOctet              = -12
	TOctetString        = -13
	TChar               = -14
	TCharString         = -15
	TDate               = -16
	TYearMonthInterval  = -17
	TTime               = -18
	TTimeInterval       = -19
	TDateTime           = -20
	TDayTimeInterval    = -21
	TCollection         = -22
	TUniformCollection  = -23
	TArray              = -24
	TUniformArray       = -25
	TSparseArray        = -26
	TUniformSparseArray = -27
	TMap                = -28
	TUniformKeysMap     = -29
	TUniformMap         = -30
	TIdentity           = -31
	TReference          = -32

	// TUnknown is never written; it marks "any type" where a uniform type
	// would otherwise be declared.
	TUnknown = -65
)

// Tiny value tags carry their whole value in the tag.
const (
	VBooleanFalse     = -33
	VBooleanTrue      = -34
	VStringZeroLength = -35
	VCollectionEmpty  = -36
	VReferenceNull    = -37
	VFPPosInfinity    = -38
	VFPNegInfinity    = -39
	VFPNaN            = -40
	VIntNeg1          = -41
	VInt0             = -42
	VInt1             = -43
	VInt2             = -44
	VInt3             = -45
	VInt4             = -46
	VInt5             = -47
	VInt6             = -48
	VInt7             = -49
	VInt8             = -50
	VInt9             = -51
	VInt10            = -52
	VInt11            = -53
	VInt12            = -54
	VInt13            = -55
	VInt14            = -56
	VInt15            = -57
	VInt16            = -58
	VInt17            = -59
	VInt18            = -60
	VInt19            = -61
	VInt20            = -62
	VInt21            = -63
	VInt22            = -64
)

// Zone discriminants of an encoded time.
const (
	zoneNone   = 0
	zoneUTC    = 1
	zoneOffset = 2
)

// Decimal bounds per precision class.
const (
	MaxDecimal32Digits  = 7
	MinDecimal32Scale   = -90
	MaxDecimal32Scale   = 101
	MaxDecimal64Digits  = 16
	MinDecimal64Scale   = -369
	MaxDecimal64Scale   = 398
	MaxDecimal128Digits = 34
	MinDecimal128Scale  = -6111
	MaxDecimal128Scale  = 6176
)

var typeNames = map[int]string{
	TInt16:              "int16",
	TInt32:              "int32",
	TInt64:              "int64",
	TInt128:             "int128",
	TFloat32:            "float32",
	TFloat64:            "float64",
	TFloat128:           "float128",
	TDecimal32:          "decimal32",
	TDecimal64:          "decimal64",
	TDecimal128:         "decimal128",
	TBoolean:            "boolean",
	TOctet:              "octet",
	TOctetString:        "octet-string",
	TChar:               "char",
	TCharString:         "char-string",
	TDate:               "date",
	TYearMonthInterval:  "year-month-interval",
	TTime:               "time",
	TTimeInterval:       "time-interval",
	TDateTime:           "datetime",
	TDayTimeInterval:    "day-time-interval",
	TCollection:         "collection",
	TUniformCollection:  "uniform-collection",
	TArray:              "array",
	TUniformArray:       "uniform-array",
	TSparseArray:        "sparse-array",
	TUniformSparseArray: "uniform-sparse-array",
	TMap:                "map",
	TUniformKeysMap:     "uniform-keys-map",
	TUniformMap:         "uniform-map",
	TIdentity:           "identity",
	TReference:          "reference",
	TUnknown:            "unknown",
	VBooleanFalse:       "false",
	VBooleanTrue:        "true",
	VStringZeroLength:   "empty-string",
	VCollectionEmpty:    "empty-collection",
	VReferenceNull:      "null",
	VFPPosInfinity:      "+infinity",
	VFPNegInfinity:      "-infinity",
	VFPNaN:              "NaN",
}

// TypeName returns a human readable name for a type or tiny value tag.
func TypeName(tag int) string {
	if tag >= 0 {
		return "user type " + strconv.Itoa(tag)
	}
	if IsTinyInt(tag) {
		return "int " + strconv.Itoa(DecodeTinyInt(tag))
	}
	if s, ok := typeNames[tag]; ok {
		return s
	}
	return "illegal tag " + strconv.Itoa(tag)
}

// IsIntrinsic reports whether tag is one of the intrinsic type tags.
func IsIntrinsic(tag int) bool { return tag <= TInt16 && tag >= TReference }

// IsTinyValue reports whether tag is a tiny value tag.
func IsTinyValue(tag int) bool { return tag <= VBooleanFalse && tag >= VInt22 }

// IsTinyInt reports whether tag encodes one of the integers -1..22.
func IsTinyInt(tag int) bool { return tag <= VIntNeg1 && tag >= VInt22 }

// IsUserType reports whether tag is a user type id.
func IsUserType(tag int) bool { return tag >= 0 }

// IsValidTag reports whether tag may start an encoded value. TUnknown is
// accepted because it may appear as a declared uniform type.
func IsValidTag(tag int) bool {
	return tag >= VInt22 || tag == TUnknown
}

// EncodeTinyInt returns the tiny value tag for n, which must be in -1..22.
func EncodeTinyInt(n int) int { return VInt0 - n }

// DecodeTinyInt returns the integer represented by a tiny int tag.
func DecodeTinyInt(tag int) int { return VInt0 - tag }

func isTinyRange(n int64) bool { return n >= -1 && n <= 22 }
