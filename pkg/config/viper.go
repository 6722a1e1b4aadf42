package config

import "github.com/spf13/viper"

// Viper adapts a *viper.Viper to Lookup. Only explicitly set values count:
// bound flags that were not changed on the command line are ignored, so a
// flag default never shadows the environment. Empty values are reported
// present when viper keeps them (see viper.AllowEmptyEnv).
func Viper(v *viper.Viper) Lookup {
	return viperLookup{v: v}
}

type viperLookup struct {
	v *viper.Viper
}

func (l viperLookup) Lookup(key string) (string, bool) {
	if !l.v.IsSet(key) {
		return "", false
	}
	return l.v.GetString(key), true
}
