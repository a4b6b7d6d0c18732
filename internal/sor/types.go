package sor

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	MapBlockID       = "Map"
	GenParamsBlockID = "GenParams"
	SupParamsBlockID = "SupParams"
	FxdParamsBlockID = "FxdParams"
	KeyEventsBlockID = "KeyEvents"
	LnkParamsBlockID = "LnkParams"
	DataPtsBlockID   = "DataPts"
	CksumBlockID     = "Cksum"
)

// Kind names the decoded variant carried by a Block.
type Kind string

const (
	KindMap       Kind = "Map"
	KindGenParams Kind = "GenParams"
	KindSupParams Kind = "SupParams"
	KindFxdParams Kind = "FxdParams"
	KindKeyEvents Kind = "KeyEvents"
	KindLnkParams Kind = "LnkParams"
	KindDataPts   Kind = "DataPts"
	KindCksum     Kind = "Cksum"
	KindUnknown   Kind = "Unknown"
)

// RawBlock is the framing-level view of a block.
type RawBlock struct {
	ID      string
	Version uint16
	Length  uint32
	Content []byte
}

// Fields is implemented by the record types of the known blocks only.
type Fields interface {
	kind() Kind
}

// Block is a framed block together with its decoded record. Fields is nil
// for blocks with unrecognized ids. When Err is set, Fields holds whatever
// was decoded before the failing field.
type Block struct {
	RawBlock
	Fields Fields
	Err    error
}

// Kind reports the record variant of the block.
func (b Block) Kind() Kind {
	if b.Fields == nil {
		return KindUnknown
	}
	return b.Fields.kind()
}

// Failed reports whether field decoding aborted for this block.
func (b Block) Failed() bool {
	return b.Err != nil
}

func (b Block) MarshalJSON() ([]byte, error) {
	view := struct {
		ID      string `json:"id"`
		Kind    Kind   `json:"kind"`
		Version uint16 `json:"version"`
		Length  uint32 `json:"length"`
		Fields  Fields `json:"fields,omitempty"`
		Error   string `json:"error,omitempty"`
		Content []byte `json:"content,omitempty"`
	}{
		ID:      b.ID,
		Kind:    b.Kind(),
		Version: b.Version,
		Length:  b.Length,
		Fields:  b.Fields,
		Content: b.Content,
	}
	if b.Err != nil {
		view.Error = b.Err.Error()
	}
	return json.Marshal(view)
}

// Trace is the ordered result of decoding one SOR buffer. Blocks[0] is the
// Map block.
type Trace struct {
	Blocks []Block `json:"blocks"`
	// ContentEnd is the offset just past the last framed block content.
	ContentEnd int64 `json:"contentEnd"`
}

// Map returns the Map block parameters, if the Map block was decoded.
func (t Trace) Map() (*MapParams, bool) {
	if len(t.Blocks) == 0 {
		return nil, false
	}
	mp, ok := t.Blocks[0].Fields.(*MapParams)
	return mp, ok
}

// Find returns the first block with the given id.
func (t Trace) Find(id string) (Block, bool) {
	for _, b := range t.Blocks {
		if b.ID == id {
			return b, true
		}
	}
	return Block{}, false
}

// Err joins the field errors of every failed block.
func (t Trace) Err() error {
	var errs []error
	for _, b := range t.Blocks {
		if b.Err != nil {
			errs = append(errs, b.Err)
		}
	}
	return errors.Join(errs...)
}

type MapParams struct {
	BlockCount uint16 `json:"blockCount"`
}

func (*MapParams) kind() Kind { return KindMap }

type GenParams struct {
	LanguageCode        string `json:"languageCode"`
	CableID             string `json:"cableId"`
	FiberID             string `json:"fiberId"`
	FiberType           uint16 `json:"fiberType"`
	Wavelength          uint16 `json:"wavelength"`
	OriginatingLocation string `json:"originatingLocation"`
	TerminatingLocation string `json:"terminatingLocation"`
	CableCode           string `json:"cableCode"`
	DataFlag            string `json:"dataFlag"`
	UserOffset          uint32 `json:"userOffset"`
	UserOffsetDistance  uint32 `json:"userOffsetDistance"`
	Operator            string `json:"operator"`
	Comment             string `json:"comment"`
}

func (*GenParams) kind() Kind { return KindGenParams }

type SupParams struct {
	SupplierName              string `json:"supplierName"`
	MainframeID               string `json:"mainframeId"`
	MainframeSerialNumber     string `json:"mainframeSerialNumber"`
	OpticalModuleID           string `json:"opticalModuleId"`
	OpticalModuleSerialNumber string `json:"opticalModuleSerialNumber"`
	SoftwareRevision          string `json:"softwareRevision"`
	Other                     string `json:"other"`
}

func (*SupParams) kind() Kind { return KindSupParams }

// FxdParams holds the fixed acquisition parameters. Scaled quantities are
// already divided by their format constants.
type FxdParams struct {
	Timestamp                 uint32    `json:"timestamp"`
	DistanceUnits             string    `json:"distanceUnits"`
	ActualWavelength          float64   `json:"actualWavelength"`
	AcquisitionOffset         uint32    `json:"acquisitionOffset"`
	AcquisitionOffsetDistance uint32    `json:"acquisitionOffsetDistance"`
	PulseCount                uint16    `json:"pulseCount"`
	PulseWidths               []uint16  `json:"pulseWidths"`
	DataSpacing               []float64 `json:"dataSpacing"`
	DataPoints                []uint32  `json:"dataPoints"`
	GroupIndex                float64   `json:"groupIndex"`
	BackscatterCoefficient    float64   `json:"backscatterCoefficient"`
	Averages                  uint32    `json:"averages"`
	AveragingTime             uint16    `json:"averagingTime"`
	AcquisitionRange          uint32    `json:"acquisitionRange"`
	AcquisitionRangeDistance  uint32    `json:"acquisitionRangeDistance"`
	FrontPanelOffset          uint32    `json:"frontPanelOffset"`
	NoiseFloorLevel           float64   `json:"noiseFloorLevel"`
	NoiseFloorScaleFactor     float64   `json:"noiseFloorScaleFactor"`
	PowerOffsetFirstPoint     float64   `json:"powerOffsetFirstPoint"`
	LossThreshold             float64   `json:"lossThreshold"`
	ReflectanceThreshold      float64   `json:"reflectanceThreshold"`
	EndThreshold              float64   `json:"endThreshold"`
	TraceType                 string    `json:"traceType"`
	WindowCoordinates         [4]uint32 `json:"windowCoordinates"`
}

func (*FxdParams) kind() Kind { return KindFxdParams }

// Time returns the acquisition timestamp in UTC.
func (p *FxdParams) Time() time.Time {
	return time.Unix(int64(p.Timestamp), 0).UTC()
}

// TimestampMillis returns the acquisition timestamp as milliseconds since
// the epoch.
func (p *FxdParams) TimestampMillis() int64 {
	return int64(p.Timestamp) * 1000
}

type Event struct {
	Number                   uint16    `json:"number"`
	PropagationTime          uint32    `json:"propagationTime"`
	Attenuation              float64   `json:"attenuation"`
	Loss                     float64   `json:"loss"`
	Reflectance              float64   `json:"reflectance"`
	Code                     string    `json:"code"`
	LossMeasurementTechnique string    `json:"lossMeasurementTechnique"`
	MarkerLocations          [5]uint32 `json:"markerLocations"`
	Comment                  string    `json:"comment"`
}

type KeyEvents struct {
	EventCount           uint16    `json:"eventCount"`
	Events               []Event   `json:"events"`
	EndToEndLoss         float64   `json:"endToEndLoss"`
	EndToEndMarkers      [2]uint32 `json:"endToEndMarkers"`
	OpticalReturnLoss    float64   `json:"opticalReturnLoss"`
	OpticalReturnMarkers [2]uint32 `json:"opticalReturnMarkers"`
}

func (*KeyEvents) kind() Kind { return KindKeyEvents }

type Landmark struct {
	Number            uint16    `json:"number"`
	Code              string    `json:"code"`
	Location          uint32    `json:"location"`
	RelatedEvent      uint16    `json:"relatedEventNumber"`
	GPS               [2]uint32 `json:"gps"`
	CorrectionFactor  float64   `json:"correctionFactor"`
	EnteringMarker    uint32    `json:"enteringMarker"`
	LeavingMarker     uint32    `json:"leavingMarker"`
	LeavingUnits      string    `json:"leavingUnits"`
	ModeFieldDiameter string    `json:"modeFieldDiameter"`
	Comment           string    `json:"comment"`
}

// CorrectionPercent formats the correction factor the way instruments
// display it.
func (l Landmark) CorrectionPercent() string {
	return fmt.Sprintf("%g%%", l.CorrectionFactor)
}

type LnkParams struct {
	LandmarkCount uint16     `json:"landmarkCount"`
	Landmarks     []Landmark `json:"landmarks"`
}

func (*LnkParams) kind() Kind { return KindLnkParams }

// DataPts holds the scale-factor table at the head of the DataPts block.
// The bulk trace samples that follow the table are not decoded.
type DataPts struct {
	PointCount       uint32   `json:"pointCount"`
	ScaleFactorCount uint16   `json:"scaleFactorCount"`
	ScaledPointCount uint32   `json:"scaledPointCount"`
	ScaleFactor      uint16   `json:"scaleFactor"`
	Samples          []uint16 `json:"samples"`
}

func (*DataPts) kind() Kind { return KindDataPts }

type Cksum struct {
	Checksum uint16 `json:"checksum"`
}

func (*Cksum) kind() Kind { return KindCksum }
