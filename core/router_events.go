package core

import "fmt"

type RouterEvent int

// trace events

const (
	RouteAdded RouterEvent = iota
	RouteChanged
	RouteRemoved
	AdvertisementInstalled
	AdvertisementFlooded
	StaleAdvertisementDropped
	ComputationScheduled
	ComputationCoalesced
	Converged
)

// warn events

const (
	ComputationAborted RouterEvent = iota + 1000
	AdvertisementExpired
	SelfAdvertisementReclaimed
)

func (e RouterEvent) String() string {
	switch e {
	case RouteAdded:
		return "RouteAdded"
	case RouteChanged:
		return "RouteChanged"
	case RouteRemoved:
		return "RouteRemoved"
	case AdvertisementInstalled:
		return "AdvertisementInstalled"
	case AdvertisementFlooded:
		return "AdvertisementFlooded"
	case StaleAdvertisementDropped:
		return "StaleAdvertisementDropped"
	case ComputationScheduled:
		return "ComputationScheduled"
	case ComputationCoalesced:
		return "ComputationCoalesced"
	case Converged:
		return "Converged"
	case ComputationAborted:
		return "ComputationAborted"
	case AdvertisementExpired:
		return "AdvertisementExpired"
	case SelfAdvertisementReclaimed:
		return "SelfAdvertisementReclaimed"
	}
	return fmt.Sprintf("RouterEvent(%d)", int(e))
}

// Warn reports whether the event indicates an abnormal condition
func (e RouterEvent) Warn() bool {
	return e >= 1000
}
