package dispatch

import (
	"strings"
)

// Category is the loader category a representation is classified into.
type Category string

const (
	CategoryFrames    Category = "frames"
	CategoryMovie     Category = "movie"
	CategoryUnmatched Category = "unmatched"
)

// ImageExtensions are still image and image sequence formats.
var ImageExtensions = []string{
	"ani", "anim", "apng", "art", "bmp", "bpg", "bsave", "cal", "cin", "cpc",
	"cpt", "dds", "dpx", "ecw", "exr", "fits", "flic", "flif", "fpx", "gif",
	"hdri", "hevc", "icer", "icns", "ico", "cur", "ics", "ilbm", "jbig",
	"jbig2", "jng", "jpeg", "jpeg-ls", "jpeg-hdr", "2000", "jpg", "kra",
	"logluv", "mng", "miff", "nrrd", "ora", "pam", "pbm", "pgm", "ppm", "pnm",
	"pcx", "pgf", "pictor", "png", "psd", "psb", "psp", "qtvr", "ras", "rgbe",
	"sgi", "tga", "tif", "tiff", "tiff/ep", "tiff/it", "ufo", "ufp", "wbmp",
	"webp", "xr", "xt", "xbm", "xcf", "xpm", "xwd",
}

// VideoExtensions are container and video formats.
var VideoExtensions = []string{
	"3g2", "3gp", "amv", "asf", "avi", "drc", "f4a", "f4b", "f4p", "f4v",
	"flv", "gif", "gifv", "m2v", "m4p", "m4v", "mkv", "mng", "mov", "mp2",
	"mp4", "mpe", "mpeg", "mpg", "mpv", "mxf", "nsv", "ogg", "ogv", "qt", "rm",
	"rmvb", "roq", "svi", "vob", "webm", "wmv", "yuv",
}

// Classifier maps extensions to categories by exact match.
// Image formats win over video formats that share an extension.
type Classifier struct {
	image map[string]struct{}
	video map[string]struct{}
}

// NewClassifier builds a classifier; nil lists select the built-in sets.
func NewClassifier(image, video []string) *Classifier {
	if image == nil {
		image = ImageExtensions
	}
	if video == nil {
		video = VideoExtensions
	}
	return &Classifier{
		image: extensionSet(image),
		video: extensionSet(video),
	}
}

func extensionSet(exts []string) map[string]struct{} {
	set := make(map[string]struct{}, len(exts))
	for _, ext := range exts {
		if ext = NormalizeExtension(ext); ext != "" {
			set[ext] = struct{}{}
		}
	}
	return set
}

// Classify returns the category of ext, which may carry a leading dot.
func (c *Classifier) Classify(ext string) Category {
	ext = NormalizeExtension(ext)
	if ext == "" {
		return CategoryUnmatched
	}
	if _, ok := c.image[ext]; ok {
		return CategoryFrames
	}
	if _, ok := c.video[ext]; ok {
		return CategoryMovie
	}
	return CategoryUnmatched
}

// NormalizeExtension lower-cases ext and strips leading dots and spaces.
func NormalizeExtension(ext string) string {
	return strings.ToLower(strings.TrimLeft(strings.TrimSpace(ext), "."))
}

// ExtensionOf returns the normalized extension of a file path, accepting
// both slash styles. Frame number tokens such as "####" are ignored because
// only the last dot counts.
func ExtensionOf(path string) string {
	if i := strings.LastIndexAny(path, `/\`); i >= 0 {
		path = path[i+1:]
	}
	i := strings.LastIndexByte(path, '.')
	if i <= 0 {
		return ""
	}
	return NormalizeExtension(path[i+1:])
}

// extensionFor picks the extension of a resolved representation: its own
// explicit extension, then its path, then the request's explicit extension,
// then the first file-like name.
func extensionFor(rep Representation, requested string, names ...string) string {
	if ext := NormalizeExtension(rep.Extension); ext != "" {
		return ext
	}
	if ext := ExtensionOf(rep.Path); ext != "" {
		return ext
	}
	if ext := NormalizeExtension(requested); ext != "" {
		return ext
	}
	for _, name := range names {
		if ext := ExtensionOf(name); ext != "" {
			return ext
		}
	}
	return ""
}
