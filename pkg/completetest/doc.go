// Package completetest provides test doubles for code built on the
// provider package: a scripted Completer for hosts and a recording
// Transport for exercising a real Dispatcher without a network.
package completetest
