package sor

const (
	wavelengthScale  = 10
	spacingScale     = 10000
	groupIndexScale  = 100000
	backscatterScale = 10
	thousandths      = 1000
)

// decodeFxdParams reads the fixed parameters. The three pulse-indexed
// arrays share one count and appear as all widths, then all spacings, then
// all point counts.
func decodeFxdParams(c *cursor) Fields {
	p := &FxdParams{}
	c.blockID()
	p.Timestamp = c.u32("timestamp")
	p.DistanceUnits = c.fixed("distanceUnits", shortLen)
	p.ActualWavelength = c.scaled16("actualWavelength", wavelengthScale)
	p.AcquisitionOffset = c.u32("acquisitionOffset")
	p.AcquisitionOffsetDistance = c.u32("acquisitionOffsetDistance")
	p.PulseCount = c.u16("pulseCount")

	n := uint32(p.PulseCount)
	p.PulseWidths = make([]uint16, 0, c.capHint(n, shortLen))
	for i := uint32(0); i < n && !c.failed(); i++ {
		v := c.u16("pulseWidths")
		if !c.failed() {
			p.PulseWidths = append(p.PulseWidths, v)
		}
	}
	p.DataSpacing = make([]float64, 0, c.capHint(n, longLen))
	for i := uint32(0); i < n && !c.failed(); i++ {
		v := c.scaled32("dataSpacing", spacingScale)
		if !c.failed() {
			p.DataSpacing = append(p.DataSpacing, v)
		}
	}
	p.DataPoints = make([]uint32, 0, c.capHint(n, longLen))
	for i := uint32(0); i < n && !c.failed(); i++ {
		v := c.u32("dataPoints")
		if !c.failed() {
			p.DataPoints = append(p.DataPoints, v)
		}
	}

	p.GroupIndex = c.scaled32("groupIndex", groupIndexScale)
	p.BackscatterCoefficient = c.scaled16("backscatterCoefficient", backscatterScale)
	p.Averages = c.u32("averages")
	p.AveragingTime = c.u16("averagingTime")
	p.AcquisitionRange = c.u32("acquisitionRange")
	p.AcquisitionRangeDistance = c.u32("acquisitionRangeDistance")
	p.FrontPanelOffset = c.u32("frontPanelOffset")
	p.NoiseFloorLevel = c.scaled16("noiseFloorLevel", thousandths)
	p.NoiseFloorScaleFactor = c.scaled16("noiseFloorScaleFactor", thousandths)
	p.PowerOffsetFirstPoint = c.scaled16("powerOffsetFirstPoint", thousandths)
	p.LossThreshold = c.scaled16("lossThreshold", thousandths)
	// Reflectance is stored as a positive magnitude of a negative dB value.
	p.ReflectanceThreshold = c.scaled16("reflectanceThreshold", -thousandths)
	p.EndThreshold = c.scaled16("endThreshold", thousandths)
	p.TraceType = c.fixed("traceType", shortLen)
	for i := range p.WindowCoordinates {
		p.WindowCoordinates[i] = c.u32("windowCoordinates")
	}
	return p
}
