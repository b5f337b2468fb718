//go:build tinygo && avr && !atmega8 && !atmega16

package main

import "avrtimer/timer"

// chip is the register layout the firmware drives. ATmega168 and ATmega88
// share it.
var chip = timer.ATmega328P
