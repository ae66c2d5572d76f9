package types

type VendoredInfo struct {
	Request string `yaml:"request"`
	Path    string `yaml:"path"`
}

type VendorReport struct {
	Manifest string         `yaml:"manifest"`
	Count    int            `yaml:"count"`
	Packages []VendoredInfo `yaml:"packages"`
}
