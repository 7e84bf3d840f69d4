package config

// Dispatch configures how load events are turned into loader calls.
type Dispatch struct {
	Project      string `yaml:"project"`
	FramesLoader string `yaml:"frames_loader"`
	MovieLoader  string `yaml:"movie_loader"`

	// Empty lists keep the built-in extension sets.
	ImageExtensions []string `yaml:"image_extensions"`
	VideoExtensions []string `yaml:"video_extensions"`
}

// Launcher configures how the review application is started.
type Launcher struct {
	Executable string            `yaml:"executable"`
	Args       []string          `yaml:"args"`
	Env        map[string]string `yaml:"env"`
}

// Enabled reports whether an executable was configured.
func (l *Launcher) Enabled() bool {
	return l.Executable != ""
}
