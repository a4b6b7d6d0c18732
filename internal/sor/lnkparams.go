package sor

// landmarkMinSize is a landmark record with an empty comment.
const landmarkMinSize = 2 + 2 + 4 + 2 + 2*4 + 2 + 4 + 4 + 2 + 2 + 1

const correctionScale = 100

func decodeLnkParams(c *cursor) Fields {
	p := &LnkParams{}
	c.blockID()
	p.LandmarkCount = c.u16("landmarkCount")

	p.Landmarks = make([]Landmark, 0, c.capHint(uint32(p.LandmarkCount), landmarkMinSize))
	for i := 0; i < int(p.LandmarkCount) && !c.failed(); i++ {
		lm := decodeLandmark(c)
		if c.failed() {
			break
		}
		p.Landmarks = append(p.Landmarks, lm)
	}
	return p
}

func decodeLandmark(c *cursor) Landmark {
	var lm Landmark
	lm.Number = c.u16("landmark.number")
	lm.Code = c.fixed("landmark.code", shortLen)
	lm.Location = c.u32("landmark.location")
	lm.RelatedEvent = c.u16("landmark.relatedEventNumber")
	lm.GPS[0] = c.u32("landmark.gps")
	lm.GPS[1] = c.u32("landmark.gps")
	lm.CorrectionFactor = c.scaled16("landmark.correctionFactor", correctionScale)
	lm.EnteringMarker = c.u32("landmark.enteringMarker")
	lm.LeavingMarker = c.u32("landmark.leavingMarker")
	lm.LeavingUnits = c.fixed("landmark.leavingUnits", shortLen)
	lm.ModeFieldDiameter = c.fixed("landmark.modeFieldDiameter", shortLen)
	lm.Comment = c.cstring("landmark.comment")
	return lm
}
