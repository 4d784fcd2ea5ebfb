package conversation

// Phase is the state of the extraction machine for one conversation.
// A transcript starts in collecting, moves to extracting once it reaches the
// configured turn threshold, and is ready when a profile has been produced.
type Phase string

const (
	PhaseCollecting Phase = "collecting"
	PhaseExtracting Phase = "extracting"
	PhaseReady      Phase = "ready"
)

// ShouldExtract is the trigger predicate: true once the transcript reaches
// the threshold, and on every turn after, since later turns can revise
// earlier stated preferences.
func ShouldExtract(turnCount, threshold int) bool {
	return threshold > 0 && turnCount >= threshold
}

// PhaseFor derives the machine state from transcript length and whether a
// profile came out of the current turn.
func PhaseFor(turnCount, threshold int, hasProfile bool) Phase {
	if hasProfile {
		return PhaseReady
	}
	if ShouldExtract(turnCount, threshold) {
		return PhaseExtracting
	}
	return PhaseCollecting
}
