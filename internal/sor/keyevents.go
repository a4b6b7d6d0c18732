package sor

const (
	eventCodeLen = 6
	// eventMinSize is an event record with an empty comment.
	eventMinSize = 2 + 4 + 2 + 2 + 4 + eventCodeLen + 2 + 5*4 + 1
)

func decodeKeyEvents(c *cursor) Fields {
	p := &KeyEvents{}
	c.blockID()
	p.EventCount = c.u16("eventCount")

	p.Events = make([]Event, 0, c.capHint(uint32(p.EventCount), eventMinSize))
	for i := 0; i < int(p.EventCount) && !c.failed(); i++ {
		ev := decodeEvent(c)
		if c.failed() {
			break
		}
		p.Events = append(p.Events, ev)
	}

	p.EndToEndLoss = c.scaled32("endToEndLoss", thousandths)
	p.EndToEndMarkers[0] = c.u32("endToEndMarkers")
	p.EndToEndMarkers[1] = c.u32("endToEndMarkers")
	p.OpticalReturnLoss = c.scaled16("opticalReturnLoss", thousandths)
	p.OpticalReturnMarkers[0] = c.u32("opticalReturnMarkers")
	p.OpticalReturnMarkers[1] = c.u32("opticalReturnMarkers")
	return p
}

func decodeEvent(c *cursor) Event {
	var ev Event
	ev.Number = c.u16("event.number")
	ev.PropagationTime = c.u32("event.propagationTime")
	ev.Attenuation = c.scaled16("event.attenuation", thousandths)
	ev.Loss = c.scaled16("event.loss", thousandths)
	ev.Reflectance = c.scaled32("event.reflectance", thousandths)
	ev.Code = c.fixed("event.code", eventCodeLen)
	ev.LossMeasurementTechnique = c.fixed("event.lossMeasurementTechnique", shortLen)
	for i := range ev.MarkerLocations {
		ev.MarkerLocations[i] = c.u32("event.markerLocations")
	}
	ev.Comment = c.cstring("event.comment")
	return ev
}
