//go:build tinygo && avr && atmega8

package main

import "avrtimer/timer"

var chip = timer.ATmega8
