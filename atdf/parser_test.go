package atdf

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moffa90/go-fusebits/descfile"
	"github.com/moffa90/go-fusebits/descriptor"
	"github.com/moffa90/go-fusebits/descriptor/descriptortest"
)

// MockLogger records messages for assertions.
type MockLogger struct {
	debugMsgs []string
	infoMsgs  []string
	warnMsgs  []string
	warnKVs   [][]any
	errorMsgs []string
}

func (l *MockLogger) Debug(msg string, kv ...any) { l.debugMsgs = append(l.debugMsgs, msg) }
func (l *MockLogger) Info(msg string, kv ...any)  { l.infoMsgs = append(l.infoMsgs, msg) }
func (l *MockLogger) Warn(msg string, kv ...any) {
	l.warnMsgs = append(l.warnMsgs, msg)
	l.warnKVs = append(l.warnKVs, kv)
}
func (l *MockLogger) Error(msg string, kv ...any) { l.errorMsgs = append(l.errorMsgs, msg) }

func mustRead(t *testing.T, xml string) *Node {
	t.Helper()
	doc, err := ReadDocument(strings.NewReader(xml))
	require.NoError(t, err)
	return doc
}

func TestParseFileATmega328P(t *testing.T) {
	logger := &MockLogger{}
	dev, err := ParseFile(filepath.Join("testdata", "ATmega328P.xml"), WithLogger(logger))
	require.NoError(t, err)

	assert.Equal(t, "atmega328p", dev.ID)
	require.Len(t, dev.Fuses, 3)
	require.Len(t, dev.Locks, 1)

	// Reordered by offset, not document order.
	names := []string{dev.Fuses[0].Name, dev.Fuses[1].Name, dev.Fuses[2].Name}
	assert.Equal(t, []string{"LOW", "HIGH", "EXTENDED"}, names)
	for i, b := range dev.Fuses {
		assert.Equal(t, i, b.Index)
		assert.Equal(t, descriptor.KindFuse, b.Kind)
	}

	low := dev.Fuses[0]
	require.Len(t, low.Bitfields, 4)
	assert.Equal(t, "CKSEL", low.Bitfields[0].Name)
	assert.Equal(t, "CKDIV8", low.Bitfields[3].Name)
	cksel, ok := low.Bitfield("CKSEL")
	require.True(t, ok)
	assert.Equal(t, uint8(0x0F), cksel.Mask)
	assert.Equal(t, "Select Clock Source", cksel.Label)
	require.Len(t, cksel.Enum, 4)
	assert.Equal(t, descriptor.EnumValue{Value: 0x02, Label: "Int. RC Osc. 8 MHz"}, cksel.Enum[1])

	sut, ok := low.Bitfield("SUT")
	require.True(t, ok)
	assert.Equal(t, uint8(0x30), sut.Mask)
	assert.Empty(t, sut.Enum)

	// Defaults derived from the legacy FUSE element.
	assert.Equal(t, 0x62, dev.Fuses[0].Default)
	assert.Equal(t, 0xD9, dev.Fuses[1].Default)
	assert.Equal(t, 0xFF, dev.Fuses[2].Default)

	lock := dev.Locks[0]
	assert.Equal(t, "LOCKBIT", lock.Name)
	assert.Equal(t, descriptor.KindLock, lock.Kind)
	assert.Equal(t, 0xFF, lock.Default)
	lb, ok := lock.Bitfield("LB")
	require.True(t, ok)
	assert.Len(t, lb.Enum, 3)

	// BLB1 references an enumerator that does not exist.
	blb1, ok := lock.Bitfield("BLB1")
	require.True(t, ok)
	assert.Empty(t, blb1.Enum)
	require.Len(t, logger.warnMsgs, 1)
	assert.Equal(t, "unresolved enumerator reference", logger.warnMsgs[0])
	assert.Contains(t, logger.warnKVs[0], "ENUM_BLB2")

	assert.Equal(t, descfile.CurrentFormatVersion, dev.FormatVersion)

	// Parsed layout matches the hand-written fixture.
	fixture := descriptortest.ATmega328P()
	assert.True(t, dev.IsCompatibleWith(fixture, descriptor.KindFuse))
	assert.True(t, dev.IsCompatibleWith(fixture, descriptor.KindLock))
}

func TestParseKeepsBitfieldDocumentOrder(t *testing.T) {
	doc := mustRead(t, `<p><registers memspace="FUSE"><reg name="LOW" offset="0">
  <bitfield name="CKDIV8" mask="0x80"/>
  <bitfield name="CKSEL" mask="0x0F"/>
  <bitfield name="SUT" mask="0x30"/>
</reg></registers></p>`)

	dev, err := NewParser().Parse("order", doc)
	require.NoError(t, err)
	var names []string
	for _, f := range dev.Fuses[0].Bitfields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"CKDIV8", "CKSEL", "SUT"}, names)
}

func TestParseFileInitvalDefaults(t *testing.T) {
	dev, err := ParseFile(filepath.Join("testdata", "ATtiny13.xml"))
	require.NoError(t, err)

	assert.Equal(t, "attiny13", dev.ID)
	require.Len(t, dev.Fuses, 2)
	assert.Empty(t, dev.Locks)
	assert.Equal(t, 0x6A, dev.Fuses[0].Default)
	assert.Equal(t, 0xFF, dev.Fuses[1].Default)
	assert.Equal(t, "Clock source", dev.Fuses[0].Bitfields[5].Label)
}

func TestParseLegacyDefaultSingleBit(t *testing.T) {
	doc := mustRead(t, `<part>
  <module>
    <registers memspace="FUSE">
      <reg name="LOW" offset="0"><bitfield name="CKSEL" mask="0x0F"/></reg>
      <reg name="HIGH" offset="1"><bitfield name="BOOTRST" mask="0x01"/></reg>
    </registers>
  </module>
  <FUSE>
    <LIST>[LOW:HIGH]</LIST>
    <LOW><FUSE0><DEFAULT>0</DEFAULT></FUSE0></LOW>
  </FUSE>
</part>`)

	dev, err := NewParser().Parse("legacy", doc)
	require.NoError(t, err)
	assert.Equal(t, 0xFE, dev.Fuses[0].Default)
	// Listed but not described: no information.
	assert.Equal(t, descriptor.Unset, dev.Fuses[1].Default)
}

func TestParseLegacyPrecedesInitval(t *testing.T) {
	doc := mustRead(t, `<part>
  <registers memspace="FUSE">
    <reg name="LOW" offset="0" initval="0x00"><bitfield name="A" mask="0x01"/></reg>
  </registers>
  <FUSE><LIST>[LOW]</LIST><LOW><FUSE7><DEFAULT>0</DEFAULT></FUSE7></LOW></FUSE>
</part>`)

	dev, err := NewParser().Parse("p", doc)
	require.NoError(t, err)
	assert.Equal(t, 0x7F, dev.Fuses[0].Default)
}

func TestParseNoConfigurationBytes(t *testing.T) {
	doc := mustRead(t, `<part><modules><module name="PORTB"/></modules></part>`)

	dev, err := NewParser().Parse("atxmega-none", doc)
	require.NoError(t, err)
	assert.Equal(t, 0, dev.ByteCount(descriptor.KindFuse))
	assert.Equal(t, 0, dev.ByteCount(descriptor.KindLock))
}

func TestParseGapFilledWithPlaceholder(t *testing.T) {
	logger := &MockLogger{}
	doc := mustRead(t, `<part><registers memspace="FUSE">
  <reg name="EXTENDED" offset="0x02"><bitfield name="BODLEVEL" mask="0x07"/></reg>
  <reg name="LOW" offset="0x00"><bitfield name="CKSEL" mask="0x0F"/></reg>
</registers></part>`)

	dev, err := NewParser(WithLogger(logger)).Parse("gappy", doc)
	require.NoError(t, err)
	require.Len(t, dev.Fuses, 3)
	assert.Equal(t, "LOW", dev.Fuses[0].Name)
	assert.Equal(t, "RESERVED1", dev.Fuses[1].Name)
	assert.Empty(t, dev.Fuses[1].Bitfields)
	assert.Equal(t, "EXTENDED", dev.Fuses[2].Name)
	assert.NoError(t, dev.Validate())
	assert.Contains(t, logger.warnMsgs, "gap in byte offsets, inserting placeholder")
}

func TestParseMalformed(t *testing.T) {
	tests := []struct {
		name   string
		xml    string
		errMsg string
	}{
		{
			name:   "missing offset",
			xml:    `<p><registers memspace="FUSE"><reg name="LOW"/></registers></p>`,
			errMsg: `reg "LOW": attribute "offset" is missing`,
		},
		{
			name:   "missing name",
			xml:    `<p><registers memspace="LOCKBIT"><reg offset="0"/></registers></p>`,
			errMsg: `attribute "name" is missing`,
		},
		{
			name:   "bad offset",
			xml:    `<p><registers memspace="FUSE"><reg name="LOW" offset="zero"/></registers></p>`,
			errMsg: `has invalid value "zero"`,
		},
		{
			name:   "duplicate offset",
			xml:    `<p><registers memspace="FUSE"><reg name="A" offset="0"/><reg name="B" offset="0"/></registers></p>`,
			errMsg: `duplicates offset 0`,
		},
		{
			name:   "zero mask",
			xml:    `<p><registers memspace="FUSE"><reg name="LOW" offset="0"><bitfield name="X" mask="0x00"/></reg></registers></p>`,
			errMsg: `bitfield LOW.X: attribute "mask"`,
		},
		{
			name:   "wide mask",
			xml:    `<p><registers memspace="FUSE"><reg name="LOW" offset="0"><bitfield name="X" mask="0x100"/></reg></registers></p>`,
			errMsg: `has invalid value "0x100"`,
		},
		{
			name:   "duplicate bitfield",
			xml:    `<p><registers memspace="FUSE"><reg name="LOW" offset="0"><bitfield name="X" mask="1"/><bitfield name="X" mask="2"/></reg></registers></p>`,
			errMsg: `duplicate bitfield LOW.X`,
		},
		{
			name:   "bad enum value",
			xml:    `<p><m><registers memspace="FUSE"/><enumerator name="E"><enum val="0xZZ"/></enumerator></m></p>`,
			errMsg: `enumerator "E"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewParser().Parse("bad", mustRead(t, tt.xml))
			require.Error(t, err)
			assert.True(t, IsMalformed(err), "want *MalformedError, got %T", err)
			assert.Contains(t, err.Error(), tt.errMsg)
			assert.Contains(t, err.Error(), "bad: malformed descriptor")
		})
	}
}

func TestParseKind(t *testing.T) {
	doc, err := ReadFile(filepath.Join("testdata", "ATmega328P.xml"))
	require.NoError(t, err)

	locks, err := NewParser().ParseKind("atmega328p", descriptor.KindLock, doc)
	require.NoError(t, err)
	assert.Empty(t, locks.Fuses)
	assert.Len(t, locks.Locks, 1)
}

func TestParseNilDocument(t *testing.T) {
	_, err := NewParser().Parse("x", nil)
	assert.Error(t, err)
}

func TestDeviceID(t *testing.T) {
	tests := []struct {
		name string
		xml  string
		want string
	}{
		{"device element", `<r><devices><device name="ATmega8"/></devices></r>`, "atmega8"},
		{"part name", `<AVRPART><ADMIN><PART_NAME>ATtiny85</PART_NAME></ADMIN></AVRPART>`, "attiny85"},
		{"none", `<r/>`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeviceID(mustRead(t, tt.xml)))
		})
	}
	assert.Equal(t, "atmega328p", DeviceIDFromPath("/x/y/ATmega328P.xml"))
}

func TestReadDocumentErrors(t *testing.T) {
	_, err := ReadDocument(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadDocument(strings.NewReader("<a><b></a>"))
	assert.Error(t, err)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.xml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadDocumentLatin1(t *testing.T) {
	raw := "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
		"<a><bitfield name=\"X\" caption=\"R\xe9glage\"/></a>"
	doc, err := ReadDocument(strings.NewReader(raw))
	require.NoError(t, err)

	label, ok := doc.Child("bitfield").Attr("caption")
	require.True(t, ok)
	assert.Equal(t, "Réglage", label)

	_, err = ReadDocument(strings.NewReader(`<?xml version="1.0" encoding="EBCDIC"?><a/>`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported document encoding")
}

func TestNodeNavigation(t *testing.T) {
	doc := mustRead(t, `<a x="1"><b>hi</b><c/><b>there</b></a>`)
	assert.Equal(t, "a", doc.Name)
	v, ok := doc.Attr("x")
	assert.True(t, ok)
	assert.Equal(t, "1", v)
	assert.Equal(t, "hi", doc.Child("b").Text)
	assert.Len(t, doc.ChildrenNamed("b", "c"), 3)
	assert.Same(t, doc, doc.Child("c").Parent())
	assert.Nil(t, doc.Parent())
	assert.Nil(t, doc.Find(func(n *Node) bool { return n.Name == "z" }))
}

func TestLegacyHelpers(t *testing.T) {
	assert.Equal(t, []string{"LOW", "HIGH", "EXTENDED"}, parseLegacyList(" [LOW:HIGH:EXTENDED] "))
	assert.Nil(t, parseLegacyList("[]"))

	n, ok := legacyBitNumber("FUSE7")
	assert.True(t, ok)
	assert.Equal(t, 7, n)
	_, ok = legacyBitNumber("FUSE8")
	assert.False(t, ok)
	_, ok = legacyBitNumber("NMB_FUSE_BITS")
	assert.False(t, ok)
}

func TestDirSource(t *testing.T) {
	src := NewDirSource("testdata")
	assert.Equal(t, "testdata", src.Dir())

	ids, err := src.DeviceIDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"atmega328p", "attiny13"}, ids)

	dev, err := src.Descriptor(descriptor.KindLock, "atmega328p")
	require.NoError(t, err)
	assert.Len(t, dev.Locks, 1)
	assert.Empty(t, dev.Fuses)

	dev, err = src.Descriptor(descriptor.KindFuse, "ATmega328P")
	require.NoError(t, err)
	assert.Equal(t, "atmega328p", dev.ID)

	_, err = src.Descriptor(descriptor.KindFuse, "atmega2560")
	assert.True(t, descriptor.IsNotFound(err))

	ids, err = NewDirSource(filepath.Join(t.TempDir(), "missing")).DeviceIDs()
	require.NoError(t, err)
	assert.Empty(t, ids)
}
