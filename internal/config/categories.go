package config

// CategoryWeights orders help categories.
var CategoryWeights = map[string]int{
	"🕯️ Information": 0,
	"🎵 Music":        10,
	"🛠️ Maintenance": 60,
}
