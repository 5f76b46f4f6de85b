// Package sweep drives the simulator over lists of configurations: the build
// sweep produces one bitstream per hardware configuration and the run sweep
// collects performance metrics for every hardware configuration, workload and
// repetition.
package sweep
