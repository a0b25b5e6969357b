package bigsi

// Info summarises an index directory without opening its stores.
type Info struct {
	Dir       string `json:"dir"`
	NumBits   int    `json:"numBits"`
	NumHashes int    `json:"numHashes"`
	Colours   int    `json:"colours"`
}

// ReadInfo reads the metadata sidecar in dir.
func ReadInfo(dir string) (*Info, error) {
	m, err := loadMetadata(dir)
	if err != nil {
		return nil, err
	}
	return &Info{
		Dir:       m.DBDirectory,
		NumBits:   m.NumBits,
		NumHashes: m.NumHashes,
		Colours:   m.ColourIterator,
	}, nil
}
