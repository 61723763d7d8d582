// Package kvsplit partitions the records of a distributed key-value store into
// splits that a cluster of workers can read in parallel.
//
// # Architecture
//
// Planning and reading are separate steps:
//
//  1. Key discovery. A strategy (full scan, explicit key set, search query or
//     secondary index query) lists the record ids of a job against the first
//     reachable endpoint. Endpoints are tried in order and only store failures
//     move on to the next one.
//
//  2. Planning. The discovered ids are cut into contiguous splits of roughly
//     equal size, sized from the cluster-size hint, and each split is pinned
//     to an endpoint round robin.
//
//  3. Staging. Splits are encoded with their binary envelope, optionally
//     compressed, and published to a local directory, S3 or GCS together with
//     a manifest listing them.
//
//  4. Reading. A worker loads one split, dials the split's endpoint and fetches
//     the records one at a time, in order, reporting progress as it goes.
//
// # Quick Start
//
// Plan a job and stage its splits:
//
//	kvsplit plan -c job.yaml --staging-url s3://bucket/kvsplit
//
// Read one staged split on a worker:
//
//	kvsplit read -c job.yaml --job-id <id> --split 3
//
// The same flow is available as a library through pkg/input:
//
//	format := input.NewInputFormat(clients.NewDialer(clients.DefaultOptions()), log)
//	splits, err := format.ComputeSplits(ctx, props)
//	reader, err := format.OpenReader(ctx, splits[0])
//
// # Packages
//
//   - pkg/endpoint: endpoint descriptors and their text form
//   - pkg/discovery: key discovery strategies and their registry
//   - pkg/split: the split value and its binary envelope
//   - pkg/input: planning, endpoint fallback and the record reader
//   - pkg/store: the store connection contract and its protocol clients
//   - pkg/staging: split publication to local disk, S3 and GCS
//   - pkg/mapper and pkg/output: record mapping and result writing
package kvsplit
