package sor

func decodeGenParams(c *cursor) Fields {
	p := &GenParams{}
	c.blockID()
	p.LanguageCode = c.fixed("languageCode", shortLen)
	p.CableID = c.cstring("cableId")
	p.FiberID = c.cstring("fiberId")
	p.FiberType = c.u16("fiberType")
	p.Wavelength = c.u16("wavelength")
	p.OriginatingLocation = c.cstring("originatingLocation")
	p.TerminatingLocation = c.cstring("terminatingLocation")
	p.CableCode = c.cstring("cableCode")
	p.DataFlag = c.fixed("dataFlag", shortLen)
	p.UserOffset = c.u32("userOffset")
	p.UserOffsetDistance = c.u32("userOffsetDistance")
	p.Operator = c.cstring("operator")
	p.Comment = c.cstring("comment")
	return p
}
