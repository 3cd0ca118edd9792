package pof

import (
	"fmt"
	"math/big"
)

var maxDaysPerMonth = [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func checkType(typ int) error {
	if typ >= 0 || IsIntrinsic(typ) {
		return nil
	}
	return fmt.Errorf("unknown type: %d", typ)
}

func checkElementCount(n int) error {
	if n < 0 {
		return fmt.Errorf("illegal element count: %d", n)
	}
	return nil
}

func checkReferenceRange(id int) error {
	if id < 0 {
		return fmt.Errorf("illegal reference identity: %d", id)
	}
	return nil
}

func checkInt128(n *big.Int) error {
	if n == nil {
		return nil
	}
	m := n
	if n.Sign() < 0 {
		m = new(big.Int).Not(n)
	}
	if m.BitLen() > 127 {
		return fmt.Errorf("int128 value exceeds 128 bits: %d", n)
	}
	return nil
}

func checkChar(c rune) error {
	if c < 0 || c > 0xFFFF {
		return fmt.Errorf("char is outside the basic multilingual plane: %#x", c)
	}
	return nil
}

func checkDate(year, month, day int) error {
	if month < 1 || month > 12 {
		return fmt.Errorf("month is out of range: %d", month)
	}
	if day < 1 || day > maxDaysPerMonth[month-1] {
		return fmt.Errorf("day is out of range: %d", day)
	}
	if month == 2 && day == 29 && (year%4 != 0 || (year%100 == 0 && year%400 != 0)) {
		return fmt.Errorf("not a leap year: %d", year)
	}
	return nil
}

func checkTime(hour, minute, second, nano int) error {
	if hour < 0 || hour > 23 {
		if hour == 24 && minute == 0 && second == 0 && nano == 0 {
			return fmt.Errorf("end-of-day midnight (24:00:00.0) is supported by ISO8601, but use 00:00:00.0 instead")
		}
		return fmt.Errorf("hour is out of range: %d", hour)
	}
	if minute < 0 || minute > 59 {
		return fmt.Errorf("minute is out of range: %d", minute)
	}
	// 60 is a leap second
	if second < 0 || second > 60 || (second == 60 && nano > 0) {
		return fmt.Errorf("second is out of range: %d", second)
	}
	if nano < 0 || nano > 999999999 {
		return fmt.Errorf("nanosecond is out of range: %d", nano)
	}
	return nil
}

func checkTimeZone(hourOffset, minuteOffset int) error {
	if hourOffset < -23 || hourOffset > 23 {
		return fmt.Errorf("invalid hour offset: %d", hourOffset)
	}
	// a zone west of UTC by less than an hour puts its sign on the minutes
	low := 0
	if hourOffset == 0 {
		low = -59
	}
	if minuteOffset < low || minuteOffset > 59 {
		return fmt.Errorf("invalid minute offset: %d", minuteOffset)
	}
	return nil
}

func checkRawTime(t RawTime) error {
	if err := checkTime(t.Hour, t.Minute, t.Second, t.Nano); err != nil {
		return err
	}
	if t.Zone == ZoneOffset {
		return checkTimeZone(t.HourOffset, t.MinuteOffset)
	}
	return nil
}

func checkYearMonthInterval(years, months int) error {
	if years == 0 && (months < -11 || months > 11) {
		return fmt.Errorf("month interval is out of range: %d", months)
	}
	return nil
}

// checkTimeInterval allows a negative interval: only the leading non-zero
// field carries the sign.
func checkTimeInterval(hours, minutes, seconds, nanos int) error {
	switch {
	case hours != 0:
		hours = abs(hours)
	case minutes != 0:
		minutes = abs(minutes)
	case seconds != 0:
		seconds = abs(seconds)
	default:
		nanos = abs(nanos)
	}
	return checkTime(hours, minutes, seconds, nanos)
}

func checkDayTimeInterval(days, hours, minutes, seconds, nanos int) error {
	if days == 0 {
		return checkTimeInterval(hours, minutes, seconds, nanos)
	}
	return checkTime(hours, minutes, seconds, nanos)
}
