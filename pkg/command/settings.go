package command

// Settings holds the persisted per-command overrides from the settings
// blob. A nil Keybinding means "no override"; an empty string means the
// user cleared the default binding.
type Settings struct {
	Keybinding *string `yaml:"keybinding,omitempty"`
}
