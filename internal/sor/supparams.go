package sor

func decodeSupParams(c *cursor) Fields {
	p := &SupParams{}
	c.blockID()
	p.SupplierName = c.cstring("supplierName")
	p.MainframeID = c.cstring("mainframeId")
	p.MainframeSerialNumber = c.cstring("mainframeSerialNumber")
	p.OpticalModuleID = c.cstring("opticalModuleId")
	p.OpticalModuleSerialNumber = c.cstring("opticalModuleSerialNumber")
	p.SoftwareRevision = c.cstring("softwareRevision")
	p.Other = c.cstring("other")
	return p
}
