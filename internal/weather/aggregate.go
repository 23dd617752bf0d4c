package weather

import (
	"strconv"

	"github.com/i474232898/weather-dashboard/internal/common"
)

// Merge combines an observation result and a forecast result into a new view
// model. Each of the four success/failure combinations is handled explicitly:
// a failed branch leaves its fields zeroed and is listed in Missing, and when
// both branches fail prev is returned unchanged. IsLoading is left to the store.
func Merge(prev ViewModel, obs Result[Observation], fc Result[Forecast]) (ViewModel, Outcome) {
	switch {
	case obs.OK() && fc.OK():
		vm := ViewModel{}
		applyObservation(&vm, obs.Value)
		applyForecast(&vm, fc.Value)
		return vm, OutcomeOK

	case obs.OK() && !fc.OK():
		vm := ViewModel{Condition: ConditionUnknown, Missing: []string{BranchForecast}}
		applyObservation(&vm, obs.Value)
		return vm, OutcomePartial

	case !obs.OK() && fc.OK():
		vm := ViewModel{Missing: []string{BranchObservation}}
		applyForecast(&vm, fc.Value)
		return vm, OutcomePartial

	default:
		vm := prev
		vm.Missing = append([]string(nil), prev.Missing...)
		return vm, OutcomeFailed
	}
}

func applyObservation(vm *ViewModel, o Observation) {
	vm.ObservationTime = o.ObservationTime
	vm.LocationName = o.LocationName
	vm.Temperature = o.Temperature
	vm.WindSpeed = o.WindSpeed
	vm.Humidity = o.Humidity
}

func applyForecast(vm *ViewModel, f Forecast) {
	vm.Description = f.Description
	vm.WeatherCode = f.WeatherCode
	vm.RainPossibility = f.RainPossibility
	vm.Comfortability = f.Comfortability
	vm.Condition = ConditionFromCode(f.WeatherCode, f.Description)
}

// ConditionFromCode maps a CWB Wx code to a normalized condition. When the
// code is not a number the description text is used instead.
func ConditionFromCode(code, description string) Condition {
	n, err := strconv.Atoi(code)
	if err != nil {
		return conditionFromText(description)
	}

	switch n {
	case 1:
		return ConditionClear
	case 2, 3, 4, 5, 6, 7:
		return ConditionCloudy
	case 8, 9, 10, 11, 12, 13, 14, 19, 20, 29, 30, 31, 32, 38, 39:
		return ConditionRain
	case 15, 16, 17, 18, 21, 22, 33, 34, 35, 36, 41:
		return ConditionStorm
	case 23, 37, 42:
		return ConditionSnow
	case 24, 25, 26, 27, 28:
		return ConditionMist
	default:
		return conditionFromText(description)
	}
}

func conditionFromText(text string) Condition {
	switch {
	case text == "":
		return ConditionUnknown
	case common.HasAny(text, "雷"):
		return ConditionStorm
	case common.HasAny(text, "雪", "冰"):
		return ConditionSnow
	case common.HasAny(text, "雨"):
		return ConditionRain
	case common.HasAny(text, "霧"):
		return ConditionMist
	case common.HasAny(text, "雲", "陰"):
		return ConditionCloudy
	case common.HasAny(text, "晴"):
		return ConditionClear
	default:
		return ConditionUnknown
	}
}
