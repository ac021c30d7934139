// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package cmd

import (
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// Version of this software - filled in by ldflags in Makefile.
	Version string
	// BuildTime of this software - filled in by ldflags in Makefile.
	BuildTime string
)

// envPrefix prefixes the environment variable of every flag.
const envPrefix = "DIVERSITY"

var subcommandFns = map[string]func(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command{}

// NewRootCommand creates the diversity command with every registered
// subcommand under it.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	if Version == "" {
		Version = "v0.0.0"
	}
	if BuildTime == "" {
		BuildTime = "not recorded"
	}
	rc := &cobra.Command{
		Use:   "diversity",
		Short: "diversity - genomic diversity of sequence selections",
		Long: `Computes the Shannon entropy of every mutated position of a
selection of genome sequences, the mean entropy per gene, and weekly
mean entropy series, from mutation proportions served by LAPIS, a
snapshot directory, an S3 bucket or a Kafka topic.

Flags not given on the command line are read from DIVERSITY_<FLAG> in
the environment, then from the [<subcommand>] table of the TOML file
given by --config, then from the top level of that file.

Version: ` + Version + `
Build Time: ` + BuildTime + "\n",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return loadConfig(viper.New(), cmd.Name(), cmd.Flags())
		},
	}
	rc.PersistentFlags().String("config", "", "TOML configuration file.")
	for _, fn := range subcommandFns {
		rc.AddCommand(fn(stdin, stdout, stderr))
	}
	rc.SetOutput(stderr)
	return rc
}

// loadConfig sets every flag which wasn't given on the command line from
// the environment or the configuration file. A [section] table in the file
// overrides the top level keys for that subcommand only, so one file can
// configure analyze and decode differently. Flags found nowhere keep their
// defaults.
func loadConfig(v *viper.Viper, section string, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return errors.Wrap(err, "binding flags")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading configuration file '%s'", path)
		}
	}
	var sub *viper.Viper
	if section != "" {
		sub = v.Sub(section)
	}

	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		// Set appends to slice flags, so values given on the command line
		// must not be set again.
		if err != nil || f.Changed {
			return
		}
		src := v
		if _, inEnv := os.LookupEnv(envKey(f.Name)); !inEnv && sub != nil && sub.IsSet(f.Name) {
			src = sub
		}
		err = errors.Wrapf(f.Value.Set(flagValue(src, f)), "setting %s", f.Name)
	})
	return err
}

// envKey is the environment variable for flag name.
func envKey(name string) string {
	return envPrefix + "_" + strings.ToUpper(strings.Replace(name, "-", "_", -1))
}

// flagValue renders the value of f's key in v the way f.Value.Set parses
// it. GetString is empty for a TOML array, so slices are joined instead.
func flagValue(v *viper.Viper, f *pflag.Flag) string {
	if f.Value.Type() == "stringSlice" {
		return strings.Join(v.GetStringSlice(f.Name), ",")
	}
	return v.GetString(f.Name)
}
