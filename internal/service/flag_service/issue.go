package flag_service

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/FloatCTF/cdm/internal/ctf_errors"
	"github.com/FloatCTF/cdm/internal/database"
	"github.com/FloatCTF/cdm/internal/service"
)

// MintFlags returns the flag strings to persist for a new instance of
// the given challenge. Dynamic challenges get unpredictable per-instance
// flags; static challenges share the definition's flag.
func (f *FlagService) MintFlags(challenge database.Challenge) ([]string, error) {
	if !challenge.IsDynamicFlag {
		if challenge.StaticFlag == nil || *challenge.StaticFlag == "" {
			err := fmt.Errorf(
				"%w, challenge %s is static but carries no flag",
				ctf_errors.ErrInternal,
				challenge.ChallengeName,
			)
			log.Error(err)
			return nil, err
		}
		return []string{*challenge.StaticFlag}, nil
	}

	count := f.FlagsPerInstance
	if count < 1 {
		count = 1
	}

	flags := make([]string, 0, count)
	for i := int32(0); i < count; i++ {
		flag, err := f.mintDynamicFlag()
		if err != nil {
			return nil, err
		}
		flags = append(flags, flag)
	}
	return flags, nil
}

func (f *FlagService) mintDynamicFlag() (string, error) {
	body, err := service.GenerateSecureRandomHex(flagRandomBytes)
	if err != nil {
		return "", err
	}

	prefix := f.Prefix
	if prefix == "" {
		prefix = DefaultFlagPrefix
	}
	return fmt.Sprintf("%s{%s}", prefix, body), nil
}

// Matches grades a claimed flag against an instance's flag set. Exact,
// case sensitive comparison only.
func Matches(claimed string, flags []database.InstanceFlag) bool {
	for _, f := range flags {
		if claimed == f.Flag {
			return true
		}
	}
	return false
}
