package report

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/elliotchance/orderedmap/v3"

	"example.com/sorgate/internal/sor"
)

// FieldList maps label keys to formatted values in display order.
type FieldList = orderedmap.OrderedMap[string, string]

// Table is a repeated-record listing such as the key events.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Section is the display form of one block.
type Section struct {
	Block  sor.Block
	Fields *FieldList
	Tables []Table
}

// Sections converts every block of the trace into its display form.
func Sections(trace sor.Trace) []Section {
	out := make([]Section, 0, len(trace.Blocks))
	for _, b := range trace.Blocks {
		out = append(out, blockSection(b))
	}
	return out
}

func blockSection(b sor.Block) Section {
	s := Section{Block: b}
	switch p := b.Fields.(type) {
	case *sor.MapParams:
		s.Fields = mapFields(p)
	case *sor.GenParams:
		s.Fields = genFields(p)
	case *sor.SupParams:
		s.Fields = supFields(p)
	case *sor.FxdParams:
		s.Fields = fxdFields(p)
	case *sor.KeyEvents:
		s.Fields = keyEventFields(p)
		s.Tables = append(s.Tables, eventTable(p))
	case *sor.LnkParams:
		s.Fields = orderedmap.NewOrderedMap[string, string]()
		s.Fields.Set("lnk.landmarkCount", uint16s(p.LandmarkCount))
		s.Tables = append(s.Tables, landmarkTable(p))
	case *sor.DataPts:
		s.Fields = dataPtsFields(p)
	case *sor.Cksum:
		s.Fields = orderedmap.NewOrderedMap[string, string]()
		s.Fields.Set("cksum.checksum", fmt.Sprintf("0x%04X", p.Checksum))
	default:
		s.Fields = orderedmap.NewOrderedMap[string, string]()
	}
	return s
}

func mapFields(p *sor.MapParams) *FieldList {
	m := orderedmap.NewOrderedMapWithCapacity[string, string](1)
	m.Set("map.blockCount", uint16s(p.BlockCount))
	return m
}

func genFields(p *sor.GenParams) *FieldList {
	m := orderedmap.NewOrderedMapWithCapacity[string, string](13)
	m.Set("gen.languageCode", p.LanguageCode)
	m.Set("gen.cableId", p.CableID)
	m.Set("gen.fiberId", p.FiberID)
	m.Set("gen.fiberType", fmt.Sprintf("G.%d", p.FiberType))
	m.Set("gen.wavelength", fmt.Sprintf("%d nm", p.Wavelength))
	m.Set("gen.originatingLocation", p.OriginatingLocation)
	m.Set("gen.terminatingLocation", p.TerminatingLocation)
	m.Set("gen.cableCode", p.CableCode)
	m.Set("gen.dataFlag", p.DataFlag)
	m.Set("gen.userOffset", uint32s(p.UserOffset))
	m.Set("gen.userOffsetDistance", uint32s(p.UserOffsetDistance))
	m.Set("gen.operator", p.Operator)
	m.Set("gen.comment", p.Comment)
	return m
}

func supFields(p *sor.SupParams) *FieldList {
	m := orderedmap.NewOrderedMapWithCapacity[string, string](7)
	m.Set("sup.supplierName", p.SupplierName)
	m.Set("sup.mainframeId", p.MainframeID)
	m.Set("sup.mainframeSerialNumber", p.MainframeSerialNumber)
	m.Set("sup.opticalModuleId", p.OpticalModuleID)
	m.Set("sup.opticalModuleSerialNumber", p.OpticalModuleSerialNumber)
	m.Set("sup.softwareRevision", p.SoftwareRevision)
	m.Set("sup.other", p.Other)
	return m
}

func fxdFields(p *sor.FxdParams) *FieldList {
	m := orderedmap.NewOrderedMapWithCapacity[string, string](24)
	m.Set("fxd.timestamp", p.Time().Format("2006-01-02 15:04:05 UTC"))
	m.Set("fxd.distanceUnits", p.DistanceUnits)
	m.Set("fxd.actualWavelength", floats(p.ActualWavelength)+" nm")
	m.Set("fxd.acquisitionOffset", uint32s(p.AcquisitionOffset))
	m.Set("fxd.acquisitionOffsetDistance", uint32s(p.AcquisitionOffsetDistance))
	m.Set("fxd.pulseCount", uint16s(p.PulseCount))
	m.Set("fxd.pulseWidths", joinUint16(p.PulseWidths, " ns"))
	m.Set("fxd.dataSpacing", joinFloat(p.DataSpacing, ""))
	m.Set("fxd.dataPoints", joinUint32(p.DataPoints))
	m.Set("fxd.groupIndex", floats(p.GroupIndex))
	m.Set("fxd.backscatterCoefficient", floats(p.BackscatterCoefficient)+" dB")
	m.Set("fxd.averages", uint32s(p.Averages))
	m.Set("fxd.averagingTime", uint16s(p.AveragingTime)+" s")
	m.Set("fxd.acquisitionRange", uint32s(p.AcquisitionRange))
	m.Set("fxd.acquisitionRangeDistance", uint32s(p.AcquisitionRangeDistance))
	m.Set("fxd.frontPanelOffset", uint32s(p.FrontPanelOffset))
	m.Set("fxd.noiseFloorLevel", floats(p.NoiseFloorLevel)+" dB")
	m.Set("fxd.noiseFloorScaleFactor", floats(p.NoiseFloorScaleFactor))
	m.Set("fxd.powerOffsetFirstPoint", floats(p.PowerOffsetFirstPoint)+" dB")
	m.Set("fxd.lossThreshold", floats(p.LossThreshold)+" dB")
	m.Set("fxd.reflectanceThreshold", floats(p.ReflectanceThreshold)+" dB")
	m.Set("fxd.endThreshold", floats(p.EndThreshold)+" dB")
	m.Set("fxd.traceType", p.TraceType)
	m.Set("fxd.windowCoordinates", joinUint32(p.WindowCoordinates[:]))
	return m
}

func keyEventFields(p *sor.KeyEvents) *FieldList {
	m := orderedmap.NewOrderedMapWithCapacity[string, string](5)
	m.Set("key.eventCount", uint16s(p.EventCount))
	m.Set("key.endToEndLoss", floats(p.EndToEndLoss)+" dB")
	m.Set("key.endToEndMarkers", joinUint32(p.EndToEndMarkers[:]))
	m.Set("key.opticalReturnLoss", floats(p.OpticalReturnLoss)+" dB")
	m.Set("key.opticalReturnMarkers", joinUint32(p.OpticalReturnMarkers[:]))
	return m
}

func eventTable(p *sor.KeyEvents) Table {
	t := Table{
		Title: "event.title",
		Columns: []string{
			"event.number", "event.propagationTime", "event.attenuation", "event.loss",
			"event.reflectance", "event.code", "event.technique", "event.markers", "event.comment",
		},
	}
	for _, ev := range p.Events {
		t.Rows = append(t.Rows, []string{
			uint16s(ev.Number),
			uint32s(ev.PropagationTime),
			floats(ev.Attenuation),
			floats(ev.Loss),
			floats(ev.Reflectance),
			ev.Code,
			ev.LossMeasurementTechnique,
			joinUint32(ev.MarkerLocations[:]),
			ev.Comment,
		})
	}
	return t
}

func landmarkTable(p *sor.LnkParams) Table {
	t := Table{
		Title: "landmark.title",
		Columns: []string{
			"landmark.number", "landmark.code", "landmark.location", "landmark.relatedEvent",
			"landmark.gps", "landmark.correction", "landmark.entering", "landmark.leaving",
			"landmark.units", "landmark.mfd", "landmark.comment",
		},
	}
	for _, lm := range p.Landmarks {
		t.Rows = append(t.Rows, []string{
			uint16s(lm.Number),
			lm.Code,
			uint32s(lm.Location),
			uint16s(lm.RelatedEvent),
			joinUint32(lm.GPS[:]),
			lm.CorrectionPercent(),
			uint32s(lm.EnteringMarker),
			uint32s(lm.LeavingMarker),
			lm.LeavingUnits,
			lm.ModeFieldDiameter,
			lm.Comment,
		})
	}
	return t
}

func dataPtsFields(p *sor.DataPts) *FieldList {
	m := orderedmap.NewOrderedMapWithCapacity[string, string](5)
	m.Set("pts.pointCount", uint32s(p.PointCount))
	m.Set("pts.scaleFactorCount", uint16s(p.ScaleFactorCount))
	m.Set("pts.scaledPointCount", uint32s(p.ScaledPointCount))
	m.Set("pts.scaleFactor", uint16s(p.ScaleFactor))
	m.Set("pts.samples", strconv.Itoa(len(p.Samples)))
	return m
}

func uint16s(v uint16) string { return strconv.FormatUint(uint64(v), 10) }

func uint32s(v uint32) string { return strconv.FormatUint(uint64(v), 10) }

func floats(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func joinUint16(vs []uint16, unit string) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = uint16s(v) + unit
	}
	return strings.Join(parts, ", ")
}

func joinUint32(vs []uint32) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = uint32s(v)
	}
	return strings.Join(parts, ", ")
}

func joinFloat(vs []float64, unit string) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = floats(v) + unit
	}
	return strings.Join(parts, ", ")
}
