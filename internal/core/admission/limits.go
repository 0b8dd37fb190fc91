package admission

import (
	"fmt"

	"timecapsule/internal/platform/config"
)

// Default quotas
const (
	DefaultMaxImages = 5
	DefaultMaxVideos = 2
	DefaultMaxAudio  = 5
	DefaultMaxTotal  = 10

	DefaultMaxImageBytes int64 = 10 << 20
	DefaultMaxVideoBytes int64 = 100 << 20
	DefaultMaxAudioBytes int64 = 20 << 20
)

// DefaultLimits returns the built-in quota policy
func DefaultLimits() Limits {
	return Limits{
		PerKindMax: map[Kind]int{Image: DefaultMaxImages, Video: DefaultMaxVideos, Audio: DefaultMaxAudio},
		TotalMax:   DefaultMaxTotal,
		MaxBytes:   map[Kind]int64{Image: DefaultMaxImageBytes, Video: DefaultMaxVideoBytes, Audio: DefaultMaxAudioBytes},
	}
}

// limitsFile is the YAML overlay shape
//
//	per_kind: {image: 5, video: 2, audio: 5}
//	total: 10
//	max_bytes: {video: 104857600}
type limitsFile struct {
	PerKind  map[Kind]int   `yaml:"per_kind"`
	Total    *int           `yaml:"total"`
	MaxBytes map[Kind]int64 `yaml:"max_bytes"`
}

// LoadLimits layers defaults, then MAX_* env keys on c, then the YAML file at path
// c is usually config.New().Prefix("CAPSULE_MEDIA_"); a blank path skips the file
func LoadLimits(c config.Conf, path string) (Limits, error) {
	l := DefaultLimits()

	l.PerKindMax[Image] = c.MayInt("MAX_IMAGE", l.PerKindMax[Image])
	l.PerKindMax[Video] = c.MayInt("MAX_VIDEO", l.PerKindMax[Video])
	l.PerKindMax[Audio] = c.MayInt("MAX_AUDIO", l.PerKindMax[Audio])
	l.TotalMax = c.MayInt("MAX_TOTAL", l.TotalMax)
	l.MaxBytes[Image] = c.MayBytes("MAX_BYTES_IMAGE", l.MaxBytes[Image])
	l.MaxBytes[Video] = c.MayBytes("MAX_BYTES_VIDEO", l.MaxBytes[Video])
	l.MaxBytes[Audio] = c.MayBytes("MAX_BYTES_AUDIO", l.MaxBytes[Audio])

	var f limitsFile
	if err := config.LoadYAML(path, &f); err != nil {
		return Limits{}, fmt.Errorf("media limits file %s: %w", path, err)
	}
	for k, v := range f.PerKind {
		if !k.Valid() {
			return Limits{}, fmt.Errorf("media limits file %s: unknown kind %q", path, k)
		}
		l.PerKindMax[k] = v
	}
	for k, v := range f.MaxBytes {
		if !k.Valid() {
			return Limits{}, fmt.Errorf("media limits file %s: unknown kind %q", path, k)
		}
		l.MaxBytes[k] = v
	}
	if f.Total != nil {
		l.TotalMax = *f.Total
	}

	for k, v := range l.PerKindMax {
		if v < 0 {
			return Limits{}, fmt.Errorf("media limit for %s must not be negative", k)
		}
	}
	return l, nil
}
