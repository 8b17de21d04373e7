package models

// Source describes one upstream EPG feed to mirror.
type Source struct {
	URL  string `json:"url"`
	Desc string `json:"desc"`
}

// SourcesFile is the parsed sources configuration: the ordered feed list plus
// free-form notes that are included verbatim at the top of the generated README.
type SourcesFile struct {
	Sources []Source `json:"sources"`
	Notes   string   `json:"notes"`
}
