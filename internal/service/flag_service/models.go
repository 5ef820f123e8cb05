package flag_service

const (
	// DefaultFlagPrefix wraps dynamic flags as FloatCTF{...}.
	DefaultFlagPrefix = "FloatCTF"

	// flagRandomBytes of entropy per dynamic flag, hex encoded in the body.
	flagRandomBytes = 24
)

// FlagService issues the flag set bound to an instance. Flags are minted
// exactly once, at instance creation; regeneration requires destroying
// and recreating the instance.
type FlagService struct {
	Prefix           string
	FlagsPerInstance int32
}
