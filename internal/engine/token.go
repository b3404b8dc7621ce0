package engine

// Result tokens summarize what a node handler did. DTMF digits ("0".."9",
// "*", "#") are their own tokens; the rest form a small closed set.
const (
	// TokenSuccess: API call succeeded / recording contained voice.
	TokenSuccess = "S"
	// TokenFailure: API call failed / extension lookup failed.
	TokenFailure = "F"
	// TokenInvalid: invalid DTMF after all retries.
	TokenInvalid = "X"
	// TokenTimeout: input window elapsed without digits.
	TokenTimeout = "T"
	// TokenDefault: default-input path used / recording was silence.
	TokenDefault = "D"
	// TokenComplete: a full multi-digit collection finished.
	TokenComplete = "#"
)
