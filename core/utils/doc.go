// Package utils provides small conversion helpers for loosely typed values,
// primarily the JSON frames read off relay websockets.
package utils
