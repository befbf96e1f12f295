package bmi270

// Identity and sizes.
const (
	ChipID = 0x24

	// ConfigFileSize is the exact length of the configuration blob uploaded
	// during Init.
	ConfigFileSize = 8192

	// MaxBurstLen is the largest single burst the device buffer can serve.
	MaxBurstLen = 2048

	// MaxWatermark is the largest value the 11-bit FIFO length can reach.
	MaxWatermark = 2047
)

// Register addresses.
const (
	RegChipID         = 0x00
	RegErr            = 0x02
	RegStatus         = 0x03
	RegAccData        = 0x0C // 0x0C..0x11, X/Y/Z little-endian
	RegGyrData        = 0x12 // 0x12..0x17
	RegInternalStatus = 0x21
	RegTemperature    = 0x22 // 0x22..0x23
	RegFIFOLength0    = 0x24
	RegFIFOLength1    = 0x25
	RegFIFOData       = 0x26
	RegAccConf        = 0x40
	RegAccRange       = 0x41
	RegGyrConf        = 0x42
	RegGyrRange       = 0x43
	RegFIFOWTM0       = 0x46
	RegFIFOWTM1       = 0x47
	RegFIFOConfig0    = 0x48
	RegFIFOConfig1    = 0x49
	RegInt1IOCtrl     = 0x53
	RegInt2IOCtrl     = 0x54
	RegIntLatch       = 0x55
	RegIntMapData     = 0x58
	RegInitCtrl       = 0x59
	RegInitAddr0      = 0x5B
	RegInitAddr1      = 0x5C
	RegInitData       = 0x5E
	RegPwrConf        = 0x7C
	RegPwrCtrl        = 0x7D
	RegCmd            = 0x7E
)

// SPI framing.
const (
	spiRead     = 0x80
	spiAddrMask = 0x7F
	// Dummy byte returned ahead of read data.
	readPreamble = 2
)

// Commands written to RegCmd.
const (
	CmdSoftReset = 0xB6
	CmdFIFOFlush = 0xB0
)

// Init control and status.
const (
	initCtrlPrepare  = 0x00
	initCtrlComplete = 0x01

	internalMsgMask    = 0x0F
	internalMsgNotInit = 0x00
	internalMsgInitOK  = 0x01
	internalMsgInitErr = 0x02
)

// PWR_CONF / PWR_CTRL.
const (
	pwrConfAdvPowerSaveOff = 0x00
	pwrConfNormal          = 0x02

	PwrCtrlAux  = 1 << 0
	PwrCtrlGyr  = 1 << 1
	PwrCtrlAcc  = 1 << 2
	PwrCtrlTemp = 1 << 3
)

// ACC_CONF / GYR_CONF / ranges.
const (
	confODRMask    = 0x0F
	confFilterPerf = 0x80 // bandwidth bits 4..6 are left untouched

	accRangeMask = 0x03
	gyrRangeMask = 0x07
)

// FIFO configuration.
const (
	fifoConfig0StopOnFull = 0x01

	fifoConfig1Header = 0x10
	fifoConfig1AccEn  = 0x40
	fifoConfig1GyrEn  = 0x80
	fifoConfig1Mask   = fifoConfig1Header | fifoConfig1AccEn | fifoConfig1GyrEn

	fifoLengthMask = 0x07FF
	fifoWTM1Mask   = 0x1F
)

// INTx_IO_CTRL bits.
const (
	intIOLevel  = 1 << 1 // 1 = active high
	intIOOD     = 1 << 2 // 1 = open drain
	intIOOutEn  = 1 << 3
	intIOCtrlRW = intIOLevel | intIOOD | intIOOutEn

	intLatchBit = 0x01
)

// INT_MAP_DATA bits. INT2 bits sit four above INT1.
const (
	intMapFIFOFull      = 1 << 0
	intMapFIFOWatermark = 1 << 1
	intMapDataReady     = 1 << 2
	intMapInt2Shift     = 4
)

// FIFO frame headers (header mode).
const (
	HeaderAccel        = 0x84
	HeaderGyro         = 0x88
	HeaderAccelGyro    = 0x8C
	HeaderSkip         = 0x40
	HeaderSensorTime   = 0x44
	HeaderConfigChange = 0x48
)

// Frame sizes in bytes, header included.
const (
	frameSizeSingle       = 7
	frameSizeAccelGyro    = 13
	frameSizeSkip         = 1
	frameSizeSensorTime   = 4
	frameSizeConfigChange = 2
)
