//go:build tinygo

// flash_stm32.go implements Device directly against the STM32H7 FLASH
// peripheral registers, bypassing any higher-level HAL so the program/erase
// critical section can be held under an explicit interrupt-disable/
// re-enable window the way ota.go holds one around its ROM flash calls.
package flash

/*
#include <stdint.h>
#include <stdbool.h>

// FLASH peripheral base and register offsets, bank 1 (STM32H7 reference
// manual §4). Bank 2 uses the same layout at FLASH_BANK2_BASE.
#define FLASH_BASE        0x52002000u
#define FLASH_BANK2_BASE  0x52002100u

#define FLASH_KEYR1_OFF   0x04u
#define FLASH_CR1_OFF     0x0Cu
#define FLASH_SR1_OFF     0x10u
#define FLASH_CCR1_OFF    0x14u

#define FLASH_KEY1 0x45670123u
#define FLASH_KEY2 0xCDEF89ABu

#define FLASH_CR_LOCK  (1u << 0)
#define FLASH_CR_PG    (1u << 1)
#define FLASH_CR_SER   (1u << 2)
#define FLASH_CR_START (1u << 7)
#define FLASH_SR_QW    (1u << 2)
#define FLASH_SR_EOP   (1u << 0)

static inline volatile uint32_t *freg(uint32_t bank_base, uint32_t off) {
    return (volatile uint32_t *)(uintptr_t)(bank_base + off);
}

static void flash_unlock(uint32_t bank_base) {
    volatile uint32_t *cr = freg(bank_base, FLASH_CR1_OFF);
    if ((*cr & FLASH_CR_LOCK) == 0) {
        return;
    }
    volatile uint32_t *keyr = freg(bank_base, FLASH_KEYR1_OFF);
    *keyr = FLASH_KEY1;
    *keyr = FLASH_KEY2;
}

static void flash_wait_idle(uint32_t bank_base) {
    volatile uint32_t *sr = freg(bank_base, FLASH_SR1_OFF);
    while (*sr & FLASH_SR_QW) {
    }
}

// stm32_program_word programs one 32-byte wordline (8 32-bit flash words)
// starting at dst, disabling interrupts for the duration of the operation.
static int stm32_program_word(uint32_t bank_base, uint32_t dst, const uint8_t *src) {
    uint32_t status;
    __asm__ volatile ("mrs %0, primask" : "=r" (status));
    __asm__ volatile ("cpsid i");

    flash_unlock(bank_base);
    volatile uint32_t *cr = freg(bank_base, FLASH_CR1_OFF);
    *cr |= FLASH_CR_PG;

    volatile uint32_t *dstp = (volatile uint32_t *)(uintptr_t)dst;
    const uint32_t *srcp = (const uint32_t *)(const void *)src;
    for (int i = 0; i < 8; i++) {
        dstp[i] = srcp[i];
    }
    flash_wait_idle(bank_base);

    int ok = (*freg(bank_base, FLASH_SR1_OFF) & FLASH_SR_EOP) != 0;
    *freg(bank_base, FLASH_CCR1_OFF) = FLASH_SR_EOP;
    *cr &= ~(uint32_t)FLASH_CR_PG;

    __asm__ volatile ("msr primask, %0" : : "r" (status));
    return ok ? 0 : -1;
}

// stm32_erase_sector erases the sector identified by sectorIdx within the
// given bank.
static int stm32_erase_sector(uint32_t bank_base, uint32_t sectorIdx) {
    uint32_t status;
    __asm__ volatile ("mrs %0, primask" : "=r" (status));
    __asm__ volatile ("cpsid i");

    flash_unlock(bank_base);
    volatile uint32_t *cr = freg(bank_base, FLASH_CR1_OFF);
    *cr = (*cr & ~(uint32_t)(0xFFu << 8)) | FLASH_CR_SER | (sectorIdx << 8);
    *cr |= FLASH_CR_START;
    flash_wait_idle(bank_base);

    int ok = (*freg(bank_base, FLASH_SR1_OFF) & FLASH_SR_EOP) != 0;
    *freg(bank_base, FLASH_CCR1_OFF) = FLASH_SR_EOP;
    *cr &= ~(uint32_t)FLASH_CR_SER;

    __asm__ volatile ("msr primask, %0" : : "r" (status));
    return ok ? 0 : -1;
}
*/
import "C"

import "unsafe"

// STM32 is a Device backed directly by the STM32H7 FLASH peripheral. It
// operates on a single physical bank's logical address window; the caller
// (bankswap.STM32 in concert with slot.PhysicalBankOf) is responsible for
// pointing it at the correct bank base.
type STM32 struct {
	// BankBase is the FLASH_CR/SR/KEYR register base for the bank this
	// Device instance targets: FLASH_BASE for bank 1, FLASH_BANK2_BASE for
	// bank 2.
	BankBase uint32
	// MemBase is the memory-mapped address at which this bank's contents
	// are readable/writable as ordinary memory.
	MemBase uint32
	// Sectors is the erase sector size in bytes.
	Sectors uint32
}

func (d *STM32) SectorSize() uint32 { return d.Sectors }

func (d *STM32) Read(addr uint32, n int) ([]byte, error) {
	ptr := unsafe.Pointer(uintptr(d.MemBase + addr))
	src := unsafe.Slice((*byte)(ptr), n)
	out := make([]byte, n)
	copy(out, src)
	return out, nil
}

func (d *STM32) ProgramWord(addr uint32, src []byte) error {
	if addr%WordLine != 0 {
		return ErrMisaligned
	}
	if len(src) != WordLine {
		return ErrProgram
	}
	ret := C.stm32_program_word(
		C.uint32_t(d.BankBase),
		C.uint32_t(d.MemBase+addr),
		(*C.uint8_t)(&src[0]),
	)
	if ret != 0 {
		return ErrProgram
	}
	return nil
}

func (d *STM32) EraseSector(addr uint32) error {
	idx := addr / d.Sectors
	ret := C.stm32_erase_sector(C.uint32_t(d.BankBase), C.uint32_t(idx))
	if ret != 0 {
		return ErrErase
	}
	return nil
}
