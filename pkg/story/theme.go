package story

import (
	"math/rand"
	"time"
)

// stationThemes maps known subway stations to their fixed fallback
// theme. The mapping is deliberately static so repeated requests for
// the same station stay thematically consistent.
var stationThemes = map[string]Theme{
	"종각":   ThemeMystery,
	"시청":   ThemeThriller,
	"서울역":  ThemeMystery,
	"강남":   ThemeThriller,
	"홍대입구": ThemeMystery,
	"잠실":   ThemeHorror,
	"압구정":  ThemeThriller,
	"교대":   ThemeMystery,
	"옥수":   ThemeMystery,
	"명동":   ThemeThriller,
	"혜화":   ThemeHorror,
	"사당":   ThemeHorror,
}

// stationLines maps known stations to their line number, used by the
// deterministic template generator.
var stationLines = map[string]int{
	"종각": 1, "시청": 1, "서울역": 1,
	"강남": 2, "홍대입구": 2, "잠실": 2,
	"압구정": 3, "교대": 3, "옥수": 3,
	"명동": 4, "혜화": 4, "사당": 4,
}

// FallbackTheme returns the deterministic theme for a known station,
// or a uniformly random allowed theme for an unknown one. The rng is
// injected so callers can seed it.
func FallbackTheme(stationName string, rng *rand.Rand) Theme {
	if theme, ok := stationThemes[stationName]; ok {
		return theme
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return AllowedThemes[rng.Intn(len(AllowedThemes))]
}

// StationLine returns the line number for a known station, defaulting
// to line 1.
func StationLine(stationName string) int {
	if line, ok := stationLines[stationName]; ok {
		return line
	}
	return 1
}

// ThemeKeyword returns the signature keyword attached to story metadata
// for each theme.
func ThemeKeyword(theme Theme) string {
	switch theme {
	case ThemeHorror:
		return "dread"
	case ThemeThriller:
		return "suspense"
	default:
		return "riddle"
	}
}

// ThemeDifficulty returns the difficulty tag used for each theme.
func ThemeDifficulty(theme Theme) string {
	switch theme {
	case ThemeHorror, ThemeThriller:
		return "hard"
	default:
		return "normal"
	}
}
