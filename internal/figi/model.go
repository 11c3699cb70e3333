package figi

import "strings"

// mappingJob is one identifier lookup inside an OpenFIGI mapping request.
type mappingJob struct {
	IDType   string `json:"idType"`
	IDValue  string `json:"idValue"`
	ExchCode string `json:"exchCode,omitempty"`
}

// mappingResult is one element of the OpenFIGI response array. Results are
// positional: result i answers job i.
type mappingResult struct {
	Data  []instrument `json:"data,omitempty"`
	Error string       `json:"error,omitempty"`
}

// instrument is one listed instrument inside a mapping result. OpenFIGI
// returns one entry per listing venue for the same security.
type instrument struct {
	FIGI   string `json:"figi"`
	Ticker string `json:"ticker"`
	Name   string `json:"name"`
}

// Mapping is the outcome of one CUSIP lookup. Found is false when the
// service knows no listed instrument for the CUSIP; the caller should
// record that so the CUSIP is not retried on every run.
type Mapping struct {
	CUSIP  string
	Ticker string
	Name   string
	FIGI   string
	Found  bool
}

// toMapping condenses a result to the first instrument carrying a ticker.
// The ticker repeats across listing venues, so the first hit is as good as
// any.
func (r mappingResult) toMapping(cusip string) Mapping {
	for _, inst := range r.Data {
		if inst.Ticker == "" {
			continue
		}
		return Mapping{
			CUSIP:  cusip,
			Ticker: strings.ToUpper(strings.TrimSpace(inst.Ticker)),
			Name:   strings.TrimSpace(inst.Name),
			FIGI:   inst.FIGI,
			Found:  true,
		}
	}
	return Mapping{CUSIP: cusip}
}
