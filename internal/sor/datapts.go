package sor

// decodeDataPts reads the scale-factor table. The bulk samples that follow
// it in the block are left in the raw content.
func decodeDataPts(c *cursor) Fields {
	p := &DataPts{}
	c.blockID()
	p.PointCount = c.u32("pointCount")
	p.ScaleFactorCount = c.u16("scaleFactorCount")
	p.ScaledPointCount = c.u32("scaledPointCount")
	p.ScaleFactor = c.u16("scaleFactor")

	n := p.ScaledPointCount
	p.Samples = make([]uint16, 0, c.capHint(n, shortLen))
	for i := uint32(0); i < n && !c.failed(); i++ {
		v := c.u16("samples")
		if !c.failed() {
			p.Samples = append(p.Samples, v)
		}
	}
	return p
}
