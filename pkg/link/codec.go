// Package link implements the text line protocol spoken with the arm
// controller over a serial channel, and tracks link health.
//
// Outbound target command:
//
//	T,<a1>,<a2>,<a3>\n
//
// Inbound feedback:
//
//	F,<a1>,<a2>,<a3>[,<ignored>...]\n
package link

import (
	"math"
	"strconv"
	"strings"

	"github.com/gwillem/visiontwin/pkg/joint"
)

// Line tags.
const (
	TagTarget   = "T"
	TagFeedback = "F"
)

// EncodeTarget renders a target command. Each angle is clamped to [0, 180].
func EncodeTarget(a joint.Angles) []byte {
	return encode(TagTarget, a.Clamp())
}

// EncodeFeedback renders a feedback line. Used by controllers emulated in
// this repo.
func EncodeFeedback(a joint.Angles) []byte {
	return encode(TagFeedback, a)
}

func encode(tag string, a joint.Angles) []byte {
	b := make([]byte, 0, 32)
	b = append(b, tag...)
	for _, v := range a.Slice() {
		b = append(b, ',')
		b = strconv.AppendFloat(b, v, 'f', -1, 64)
	}
	return append(b, '\n')
}

// DecodeFeedback parses one feedback line. It reports false for anything
// that is not a valid F line; it never fails otherwise.
func DecodeFeedback(line string) (joint.Angles, bool) {
	return decode(TagFeedback, line)
}

// DecodeTarget parses one target command line.
func DecodeTarget(line string) (joint.Angles, bool) {
	a, ok := decode(TagTarget, line)
	if !ok {
		return joint.Angles{}, false
	}
	return a.Clamp(), true
}

func decode(tag, line string) (joint.Angles, bool) {
	line = strings.TrimSpace(line)
	if line == "" || !strings.HasPrefix(line, tag) {
		return joint.Angles{}, false
	}
	parts := strings.Split(line, ",")
	if len(parts) < 4 {
		return joint.Angles{}, false
	}

	var vals [3]float64
	for i := range vals {
		v, err := strconv.ParseFloat(strings.TrimSpace(parts[i+1]), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return joint.Angles{}, false
		}
		vals[i] = v
	}
	return joint.Angles{A1: vals[0], A2: vals[1], A3: vals[2]}, true
}
