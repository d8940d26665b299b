//go:build tinygo

// bankswap_stm32.go drives the STM32H7 FLASH option-byte SWAP_BANK bit
// directly: unlock the option-byte registers, flip the bit, launch the
// reload. Per the reference implementation (boot_swap.c), interrupts must
// already be disabled by the caller, and if the option-byte reload does
// not itself reset the part, an explicit system reset follows as a
// fallback.
package bankswap

/*
#include <stdint.h>

#define FLASH_OPTKEYR_OFF 0x08u
#define FLASH_OPTCR_OFF   0x18u
#define FLASH_OPTSR_CUR_OFF 0x1Cu

#define FLASH_BASE 0x52002000u

#define OPT_KEY1 0x08192A3Bu
#define OPT_KEY2 0x4C5D6E7Fu

#define FLASH_OPTCR_OPTLOCK  (1u << 0)
#define FLASH_OPTCR_OPTSTART (1u << 1)
#define FLASH_OPTCR_SWAP_BANK (1u << 31)
#define FLASH_OPTSR_OPT_BUSY (1u << 0)

#define SCB_AIRCR 0xE000ED0Cu
#define AIRCR_VECTKEY  0x05FAu
#define AIRCR_SYSRESETREQ (1u << 2)

static inline volatile uint32_t *oreg(uint32_t off) {
    return (volatile uint32_t *)(uintptr_t)(FLASH_BASE + off);
}

static int get_swap_bank(void) {
    return (*oreg(FLASH_OPTSR_CUR_OFF) & FLASH_OPTCR_SWAP_BANK) != 0;
}

static void wait_opt_idle(void) {
    while (*oreg(FLASH_OPTSR_CUR_OFF) & FLASH_OPTSR_OPT_BUSY) {
    }
}

static int set_swap_bank(int enable) {
    volatile uint32_t *optcr = oreg(FLASH_OPTCR_OFF);
    if (*optcr & FLASH_OPTCR_OPTLOCK) {
        volatile uint32_t *optkeyr = oreg(FLASH_OPTKEYR_OFF);
        *optkeyr = OPT_KEY1;
        *optkeyr = OPT_KEY2;
    }

    if (enable) {
        *optcr |= FLASH_OPTCR_SWAP_BANK;
    } else {
        *optcr &= ~(uint32_t)FLASH_OPTCR_SWAP_BANK;
    }
    *optcr |= FLASH_OPTCR_OPTSTART;
    wait_opt_idle();

    // Option byte reload resets the part on most STM32H7 parts; if we're
    // still executing, force a system reset explicitly.
    volatile uint32_t *aircr = (volatile uint32_t *)(uintptr_t)SCB_AIRCR;
    *aircr = (AIRCR_VECTKEY << 16) | AIRCR_SYSRESETREQ;
    for (;;) {
        __asm__ volatile ("wfi");
    }
}
*/
import "C"

// STM32 is a Driver backed directly by the STM32H7 option bytes.
type STM32 struct{}

func (STM32) ReadSwap() (bool, error) {
	return C.get_swap_bank() != 0, nil
}

// SetSwap writes the option byte and launches the reload. The caller must
// already have interrupts disabled. This never returns on a working part:
// after the reload the cgo implementation writes SYSRESETREQ to AIRCR as
// the explicit reset fallback for parts whose option reload does not
// self-reset, then waits in a wfi loop for that reset.
func (STM32) SetSwap(enable bool) error {
	var v C.int
	if enable {
		v = 1
	}
	C.set_swap_bank(v)
	return ErrSwapFailure // unreachable on real hardware; kept for Driver's signature
}
