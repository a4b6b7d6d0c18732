package sortest

// SampleOptions shapes the synthetic trace produced by Sample.
type SampleOptions struct {
	CableID    string
	FiberID    string
	Wavelength uint16 // nominal, nm
	Timestamp  uint32
	Events     int
	Samples    int
	// Vendor adds an unrecognized block between LnkParams and DataPts.
	Vendor bool
}

func DefaultSampleOptions() SampleOptions {
	return SampleOptions{
		CableID:    "CBL-0042",
		FiberID:    "F07",
		Wavelength: 1550,
		Timestamp:  1_700_000_000,
		Events:     3,
		Samples:    64,
		Vendor:     true,
	}
}

// Sample builds a complete SOR buffer carrying every known block type.
func Sample(opts SampleOptions) []byte {
	blocks := []Block{
		{ID: "GenParams", Version: 200, Content: sampleGenParams(opts)},
		{ID: "SupParams", Version: 200, Content: sampleSupParams()},
		{ID: "FxdParams", Version: 200, Content: sampleFxdParams(opts)},
		{ID: "KeyEvents", Version: 200, Content: sampleKeyEvents(opts)},
		{ID: "LnkParams", Version: 200, Content: sampleLnkParams()},
	}
	if opts.Vendor {
		blocks = append(blocks, Block{ID: "VendorTrace", Version: 3, Content: Content("VendorTrace").U32(0xC0FFEE).Bytes()})
	}
	blocks = append(blocks,
		Block{ID: "DataPts", Version: 200, Content: sampleDataPts(opts)},
		Block{ID: "Cksum", Version: 200, Content: Content("Cksum").U16(0x5A5A).Bytes()},
	)
	return File(200, blocks...)
}

func sampleGenParams(opts SampleOptions) []byte {
	return Content("GenParams").
		Fixed("EN", 2).
		CString(opts.CableID).
		CString(opts.FiberID).
		U16(652).
		U16(opts.Wavelength).
		CString("Central Office").
		CString("Cabinet 12").
		CString("SMF-28e").
		Fixed("BC", 2).
		U32(0).
		U32(0).
		CString("field tech").
		CString("acceptance test").
		Bytes()
}

func sampleSupParams() []byte {
	return Content("SupParams").
		CString("Example Photonics").
		CString("OTDR-X1").
		CString("MF000123").
		CString("OM-1550").
		CString("OM000456").
		CString("2.7.0").
		CString("calibrated").
		Bytes()
}

func sampleFxdParams(opts SampleOptions) []byte {
	return Content("FxdParams").
		U32(opts.Timestamp).
		Fixed("mt", 2).
		U16(opts.Wavelength*10).
		U32(0).
		U32(0).
		U16(1).
		U16(100).
		U32(20_000).
		U32(uint32(opts.Samples)).
		U32(146_800).
		U16(800).
		U32(4096).
		U16(15).
		U32(100_000).
		U32(25_000).
		U32(0).
		U16(62_000).
		U16(1000).
		U16(0).
		U16(20).
		U16(60_000).
		U16(5000).
		Fixed("ST", 2).
		U32(0).U32(0).U32(25_000).U32(40_000).
		Bytes()
}

func sampleKeyEvents(opts SampleOptions) []byte {
	w := Content("KeyEvents").U16(uint16(opts.Events))
	for i := 0; i < opts.Events; i++ {
		code := "0F9999"
		if i == opts.Events-1 {
			code = "2E9999"
		}
		w.U16(uint16(i + 1)).
			U32(uint32(5000 * (i + 1))).
			U16(210).
			U16(uint16(80 + 10*i)).
			U32(uint32(45_000 + 1000*i)).
			Fixed(code, 6).
			Fixed("LS", 2)
		for j := 0; j < 5; j++ {
			w.U32(uint32(5000*(i+1) + 10*j))
		}
		w.CString("")
	}
	return w.
		U32(5_400).
		U32(0).U32(uint32(5000 * opts.Events)).
		U16(38_000).
		U32(0).U32(uint32(5000 * opts.Events)).
		Bytes()
}

func sampleLnkParams() []byte {
	return Content("LnkParams").
		U16(2).
		U16(1).Fixed("CO", 2).U32(0).U16(0).U32(0).U32(0).U16(0).U32(0).U32(0).Fixed("mt", 2).Fixed("09", 2).CString("central office").
		U16(2).Fixed("MH", 2).U32(10_000).U16(2).U32(0x02A1B2C3).U32(0x00D4E5F6).U16(150).U32(9_800).U32(10_200).Fixed("mt", 2).Fixed("09", 2).CString("manhole").
		Bytes()
}

func sampleDataPts(opts SampleOptions) []byte {
	w := Content("DataPts").
		U32(uint32(opts.Samples)).
		U16(1).
		U32(uint32(opts.Samples)).
		U16(1000)
	for i := 0; i < opts.Samples; i++ {
		v := 2000 + 30*i
		if i%16 == 8 {
			v += 1500
		}
		w.U16(uint16(v))
	}
	return w.Bytes()
}
