// Package logger wraps zap for the modpack binaries: a global sugared
// logger with a console encoder, context carriage
// (ToContext/FromContext/WithName/WithKV/WithFields), level parsing, and
// leveled convenience helpers (Infof, ErrorKV, etc.).
//
// Services accept a context and log through whatever logger it carries, so
// each binary's entry point names its own scope once.
package logger
