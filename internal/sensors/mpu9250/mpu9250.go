package mpu9250

import (
	"fmt"
	"time"

	"tiltd/internal/i2c"
)

var sleep = time.Sleep

// Minimal MPU-9250 driver.
//
// Focus: probe + accelerometer and magnetometer reads for attitude solving.
// The AK8963 magnetometer die is reached through bypass mode at its own bus
// address.
// - WHO_AM_I at 0x75 should return 0x71.
// - AK8963 WIA at 0x00 should return 0x48.

const (
	addrDefault    = 0x68
	addrMagDefault = 0x0C

	regWhoAmI = 0x75
	whoAmIVal = 0x71

	regPwrMgmt1    = 0x6B
	bitReset       = 0x80
	regSmplrtDiv   = 0x19
	regAccelConfig = 0x1C
	regIntPinCfg   = 0x37
	bitBypassEn    = 0x02
	regAccelXoutH  = 0x3B

	fsAccel4g = 0x08

	// AK8963 registers.
	regMagWia   = 0x00
	magWiaVal   = 0x48
	regMagHxl   = 0x03
	regMagCntl1 = 0x0A
	// 16-bit output, continuous measurement mode 2 (100 Hz).
	magCont16 = 0x16
)

const (
	gravity = 9.80665
	// 4912 uT full scale over the 16-bit range.
	scaleMag = 4912.0 / 32760.0
)

// AccelSample is an accelerometer reading in device coordinates, m/s^2.
type AccelSample struct {
	Time       time.Time
	Ax, Ay, Az float64
}

// MagSample is a magnetometer reading in device coordinates, uT.
type MagSample struct {
	Time       time.Time
	Mx, My, Mz float64
}

type Device struct {
	dev regIO
	mag regIO

	scaleAccel float64
}

type regIO interface {
	ReadRegU8(reg byte) (byte, error)
	ReadReg(reg byte, dst []byte) error
	WriteReg(reg, value byte) error
}

func DefaultAddress() uint16 { return addrDefault }

func MagAddress() uint16 { return addrMagDefault }

func New(dev, mag *i2c.Dev) (*Device, error) {
	if dev == nil || mag == nil {
		return nil, fmt.Errorf("mpu9250: dev is nil")
	}
	return newWithIO(dev, mag)
}

func newWithIO(dev, mag regIO) (*Device, error) {
	if dev == nil || mag == nil {
		return nil, fmt.Errorf("mpu9250: dev is nil")
	}
	d := &Device{dev: dev, mag: mag}

	who, err := d.dev.ReadRegU8(regWhoAmI)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: whoami read failed: %w", err)
	}
	if who != whoAmIVal {
		return nil, fmt.Errorf("mpu9250: whoami=0x%02X want 0x%02X", who, whoAmIVal)
	}

	if err := d.init(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Device) init() error {
	// Reset.
	if err := d.dev.WriteReg(regPwrMgmt1, bitReset); err != nil {
		return fmt.Errorf("mpu9250: reset failed: %w", err)
	}
	sleep(100 * time.Millisecond)

	// Wake + PLL clock.
	if err := d.dev.WriteReg(regPwrMgmt1, 0x01); err != nil {
		return fmt.Errorf("mpu9250: wake failed: %w", err)
	}
	sleep(10 * time.Millisecond)

	// Sample rate divider. Base is 1 kHz; sampRate = 1000/(div+1).
	// 50Hz -> div 19.
	div := byte(1000/50 - 1)
	_ = d.dev.WriteReg(regSmplrtDiv, div)

	if err := d.dev.WriteReg(regAccelConfig, fsAccel4g); err != nil {
		return fmt.Errorf("mpu9250: accel config failed: %w", err)
	}

	// Expose the AK8963 on the main bus.
	if err := d.dev.WriteReg(regIntPinCfg, bitBypassEn); err != nil {
		return fmt.Errorf("mpu9250: bypass enable failed: %w", err)
	}
	sleep(10 * time.Millisecond)

	wia, err := d.mag.ReadRegU8(regMagWia)
	if err != nil {
		return fmt.Errorf("mpu9250: ak8963 wia read failed: %w", err)
	}
	if wia != magWiaVal {
		return fmt.Errorf("mpu9250: ak8963 wia=0x%02X want 0x%02X", wia, magWiaVal)
	}
	if err := d.mag.WriteReg(regMagCntl1, magCont16); err != nil {
		return fmt.Errorf("mpu9250: ak8963 mode failed: %w", err)
	}
	sleep(10 * time.Millisecond)

	d.scaleAccel = 4.0 / 32768.0 * gravity
	return nil
}

func (d *Device) ReadAccel() (AccelSample, error) {
	if d == nil {
		return AccelSample{}, fmt.Errorf("mpu9250: device is nil")
	}
	buf := make([]byte, 6)
	if err := d.dev.ReadReg(regAccelXoutH, buf); err != nil {
		return AccelSample{}, fmt.Errorf("mpu9250: read accel failed: %w", err)
	}

	ax := int16(buf[0])<<8 | int16(buf[1])
	ay := int16(buf[2])<<8 | int16(buf[3])
	az := int16(buf[4])<<8 | int16(buf[5])

	return AccelSample{
		Time: time.Now(),
		Ax:   float64(ax) * d.scaleAccel,
		Ay:   float64(ay) * d.scaleAccel,
		Az:   float64(az) * d.scaleAccel,
	}, nil
}

func (d *Device) ReadMag() (MagSample, error) {
	if d == nil {
		return MagSample{}, fmt.Errorf("mpu9250: device is nil")
	}
	// Little-endian data plus ST2; reading ST2 releases the next sample.
	buf := make([]byte, 7)
	if err := d.mag.ReadReg(regMagHxl, buf); err != nil {
		return MagSample{}, fmt.Errorf("mpu9250: read mag failed: %w", err)
	}

	mx := int16(buf[1])<<8 | int16(buf[0])
	my := int16(buf[3])<<8 | int16(buf[2])
	mz := int16(buf[5])<<8 | int16(buf[4])

	// The AK8963 die is mounted rotated relative to the accel axes:
	// device x = mag y, device y = mag x, device z = -mag z.
	return MagSample{
		Time: time.Now(),
		Mx:   float64(my) * scaleMag,
		My:   float64(mx) * scaleMag,
		Mz:   -float64(mz) * scaleMag,
	}, nil
}
