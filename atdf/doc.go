// Package atdf parses Atmel part description documents into fuse and lock
// byte descriptors.
//
// # Document Format
//
// A part description is an XML document. The configuration bytes of one
// memory kind are declared in a registers element whose memspace attribute
// is "FUSE" or "LOCKBIT". Enumerations are declared separately, as sibling
// enumerator elements, and referenced by name from bitfields:
//
//	<registers name="FUSE" memspace="FUSE">
//	  <reg name="HIGH" offset="0x01" size="1">
//	    <bitfield name="BOOTSZ" mask="0x06" text="Boot size" enum="ENUM_BOOTSZ"/>
//	  </reg>
//	  <reg name="LOW" offset="0x00" size="1">
//	    <bitfield name="CKSEL" mask="0x0F" text="Clock source"/>
//	  </reg>
//	</registers>
//	<enumerator name="ENUM_BOOTSZ">
//	  <enum val="0x00" text="Boot Flash size=2048 words" name="2048W"/>
//	</enumerator>
//
// The offset attribute is the storage index of the byte; reg elements are
// not necessarily listed in offset order.
//
// Default fuse values come from an older document shape that may appear in
// the same file:
//
//	<FUSE>
//	  <LIST>[LOW:HIGH:EXTENDED]</LIST>
//	  <LOW>
//	    <FUSE0><NAME>CKSEL0</NAME><DEFAULT>0</DEFAULT></FUSE0>
//	    ...
//	  </LOW>
//	</FUSE>
//
// The n-th name in LIST is the byte at index n. A byte's default starts with
// all bits set and has bit k cleared when its FUSE<k> entry declares a
// DEFAULT of 0. The lock byte default is always 0xFF.
//
// # Usage
//
//	doc, err := atdf.ReadFile("ATmega328P.xml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	dev, err := atdf.NewParser().Parse("atmega328p", doc)
//
// Or in one step, deriving the device id from the document:
//
//	dev, err := atdf.ParseFile("ATmega328P.xml")
//
// # Error Handling
//
// A reg element without a name or offset, or a bitfield without a usable
// mask, aborts the parse of that device with a *MalformedError naming the
// element. A bitfield referencing an unknown enumerator is logged and gets
// an empty enumeration; parsing continues.
package atdf
