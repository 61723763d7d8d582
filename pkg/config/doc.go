// Package config holds the configuration of a split-planning job.
//
// Two shapes are provided:
//
//   - Properties is the flat, string-keyed bag that travels with a job from
//     the planning process to every worker. Endpoints, the cluster-size hint,
//     the discovery strategy and its init string, and the output container
//     are all stored in it under the Property* keys.
//   - JobConfig is the YAML document an operator writes. It is loaded with
//     Load, which substitutes ${VAR_NAME} references from the environment,
//     and is turned into Properties by the input package.
//
// Example:
//
//	cfg := config.NewJobConfig("nightly-export")
//	if err := config.Load("job.yaml", cfg); err != nil {
//		log.Fatal(err)
//	}
//	if err := cfg.Validate(); err != nil {
//		log.Fatal(err)
//	}
package config
