package simustock

import "time"

const saoPauloTimeZoneName = "America/Sao_Paulo"

var saoPauloLocation = loadLocation(saoPauloTimeZoneName, -3*60*60)

// loadLocation falls back to a fixed offset when the tz database is missing.
func loadLocation(name string, offset int) *time.Location {
	location, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone(name, offset)
	}
	return location
}

// NowInSaoPaulo returns current time in America/Sao_Paulo, the B3 session zone.
func NowInSaoPaulo() time.Time {
	return time.Now().In(saoPauloLocation)
}

func nowRFC3339() string {
	return NowInSaoPaulo().Format(time.RFC3339)
}
