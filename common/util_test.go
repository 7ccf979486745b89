package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestValidateEnvVars(t *testing.T) {
	flags := []cli.Flag{
		&cli.StringFlag{Name: "rpc-url", EnvVars: PrefixEnvVar("FEE_STRATEGY", "RPC_URL")},
		&cli.DurationFlag{Name: "rpc-timeout", EnvVars: PrefixEnvVar("FEE_STRATEGY", "RPC_TIMEOUT")},
	}
	provided := []string{
		"FEE_STRATEGY_RPC_URL=http://localhost:8545",
		"FEE_STRATEGY_RPC_TIMOUT=5s",
		"HOME=/root",
	}

	unknown := validateEnvVars("FEE_STRATEGY", provided, cliFlagsToEnvVars(flags))
	require.Equal(t, []string{"FEE_STRATEGY_RPC_TIMOUT=5s"}, unknown)
}

func TestParseAddress(t *testing.T) {
	address, err := ParseAddress("0x682c67f2f01bc14eb64f280c2c51524f737b1acd")
	require.NoError(t, err)
	require.Equal(t, "0x682c67f2f01bc14eb64f280c2c51524f737b1acd", strings.ToLower(address.Hex()))

	_, err = ParseAddress("0x1234")
	require.Error(t, err)
}
