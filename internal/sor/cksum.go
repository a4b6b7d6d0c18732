package sor

// decodeCksum only extracts the stored checksum; verifying it against the
// file is left to the caller.
func decodeCksum(c *cursor) Fields {
	p := &Cksum{}
	c.blockID()
	p.Checksum = c.u16("checksum")
	return p
}
