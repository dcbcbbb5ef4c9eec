package bafu

// WGS84ToLV95 converts a WGS84 latitude/longitude to Swiss LV95
// easting/northing using the federal approximation formulas. Accuracy
// is around a hundred meters inside Switzerland, which is enough for
// building identify query windows.
func WGS84ToLV95(lat, lon float64) (east, north float64) {
	phi := (lat*3600 - 169028.66) / 10000
	lam := (lon*3600 - 26782.5) / 10000

	east = 2600072.37 +
		211455.93*lam -
		10938.51*lam*phi -
		0.36*lam*phi*phi -
		44.54*lam*lam*lam

	north = 1200147.07 +
		308807.95*phi +
		3745.25*lam*lam +
		76.63*phi*phi -
		194.56*lam*lam*phi +
		119.79*phi*phi*phi

	return east, north
}
