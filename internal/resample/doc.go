// Package resample maps an irregular series onto a uniform time grid by
// linear interpolation.
//
// Grid points outside the series are handled by a Fill policy:
//
//	FillRaise    fail with ErrOutOfRange instead of extrapolating
//	FillNaN      emit the missing sentinel (NaN)
//	FillConstant carry the first/last original value outward
//
// Interior points interpolate between the two readings that bracket
// them, found by a cursor that only moves forward, so a whole grid costs
// one pass over the series.
package resample
