package model

// AssetType classifies a downloaded asset.
type AssetType string

const (
	// AssetImage is a content image. It is the only type the pipeline downloads.
	AssetImage AssetType = "image"
	// AssetCSS is a stylesheet.
	AssetCSS AssetType = "css"
	// AssetJS is a script.
	AssetJS AssetType = "js"
	// AssetFont is a web font.
	AssetFont AssetType = "font"
	// AssetOther is anything else.
	AssetOther AssetType = "other"
)

// AssetRecord describes one downloaded asset.
type AssetRecord struct {
	// SourceURL is the absolute URL the asset was downloaded from.
	SourceURL string `json:"sourceUrl"`

	// Path is the sanitized relative path of the asset inside a bundle,
	// always rooted at "assets/".
	Path string `json:"path"`

	Type      AssetType `json:"type"`
	SizeBytes int64     `json:"sizeBytes"`

	// ContentType is the media type reported by the server.
	ContentType string `json:"contentType,omitempty"`

	// Description is taken from EXIF ImageDescription or Artist when present.
	Description string `json:"description,omitempty"`

	// Data is the downloaded body. It is not serialized; emitters write it
	// to Path.
	Data []byte `json:"-"`
}
