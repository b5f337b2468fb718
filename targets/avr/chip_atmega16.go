//go:build tinygo && avr && atmega16

package main

import "avrtimer/timer"

// ATmega32 has the same timer layout
var chip = timer.ATmega16
