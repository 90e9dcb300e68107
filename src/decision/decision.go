// Package decision decides whether a finished build warrants a notification
// and which kind of message to send.
package decision

import (
	"buildmail-agent/src/provider"
)

// Variant is the kind of notification to compose.
type Variant string

const (
	VariantNone         Variant = ""
	VariantFailure      Variant = "failure"
	VariantUnstable     Variant = "unstable"
	VariantBackToNormal Variant = "back-to-normal"
)

// Subject captions, prefixed to the build's full display name.
const (
	CaptionFailure        = "Build failed in"
	CaptionUnstable       = "Build is unstable:"
	CaptionBecameUnstable = "Build became unstable:"
	CaptionStillUnstable  = "Build is still unstable:"
	CaptionBackToNormal   = "Build is back to normal:"
	CaptionBackToStable   = "Build is back to stable:"
)

// Decision is the outcome of Decide.
type Decision struct {
	Variant Variant
	Caption string
	// NoResult is set when the build had no result to classify.
	NoResult bool
}

// Send reports whether a message should go out.
func (d Decision) Send() bool {
	return d.Variant != VariantNone
}

// Decide maps the current result and the effective previous result to a
// notification decision. previous is ResultNone when there is no history.
func Decide(current, previous provider.Result, notifyEveryUnstable bool) Decision {
	switch current {
	case provider.ResultFailure:
		return Decision{Variant: VariantFailure, Caption: CaptionFailure}

	case provider.ResultUnstable:
		if !notifyEveryUnstable && previous != provider.ResultSuccess && previous != provider.ResultNone {
			return Decision{}
		}
		return Decision{Variant: VariantUnstable, Caption: unstableCaption(previous)}

	case provider.ResultSuccess:
		switch previous {
		case provider.ResultFailure:
			return Decision{Variant: VariantBackToNormal, Caption: CaptionBackToNormal}
		case provider.ResultUnstable:
			return Decision{Variant: VariantBackToNormal, Caption: CaptionBackToStable}
		}
		return Decision{}

	case provider.ResultNone:
		return Decision{NoResult: true}
	}

	// ABORTED and NOT_BUILT never notify.
	return Decision{}
}

func unstableCaption(previous provider.Result) string {
	switch previous {
	case provider.ResultSuccess:
		return CaptionBecameUnstable
	case provider.ResultUnstable:
		return CaptionStillUnstable
	}
	return CaptionUnstable
}

// EffectivePreviousBuild walks back from b to the most recent build whose
// result counts for transitions. ABORTED and NOT_BUILT builds are skipped; a
// build that is still running ends the walk with nil.
func EffectivePreviousBuild(b provider.Build) provider.Build {
	for prev := b.Previous(); prev != nil; prev = prev.Previous() {
		if prev.IsBuilding() {
			return nil
		}
		switch prev.Result() {
		case provider.ResultAborted, provider.ResultNotBuilt:
			continue
		default:
			return prev
		}
	}
	return nil
}

// EffectivePrevious returns the result of EffectivePreviousBuild, or
// ResultNone when b has no such history.
func EffectivePrevious(b provider.Build) provider.Result {
	prev := EffectivePreviousBuild(b)
	if prev == nil {
		return provider.ResultNone
	}
	return prev.Result()
}

// ForBuild applies Decide to b's own history.
func ForBuild(b provider.Build, notifyEveryUnstable bool) Decision {
	return Decide(b.Result(), EffectivePrevious(b), notifyEveryUnstable)
}
