package parser

// sampleOutput is trimmed screen output from a Lynis 3.x quick audit.
const sampleOutput = "\x1b[1;37m[ Lynis 3.0.8 ]\x1b[0m\n" + `
[+] Initializing program
------------------------------------
  - Detecting OS...                                           [ DONE ]

  ---------------------------------------------------
  Program version:           3.0.8
  Operating system:          Linux
  Operating system name:     Ubuntu
  Operating system version:  22.04
  Kernel version:            5.15.0
  Hardware platform:         x86_64
  Hostname:                  web01
  ---------------------------------------------------

[+] Firewalls
------------------------------------
  - Checking iptables kernel module                           [ FOUND ]

[+] Malware
------------------------------------
  - Checking Rootkit Hunter                                   [ NOT FOUND ]

================================================================================

  -[ Lynis 3.0.8 Results ]-

  Warnings (2):
  ----------------------------
  ! SSH root login enabled [SSH-7412]
      https://cisofy.com/lynis/controls/SSH-7412/

  ! Firewall is not running [FIRE-4512]
      https://cisofy.com/lynis/controls/FIRE-4512/

  Suggestions (3):
  ----------------------------
  * Consider updating package [PKGS-7392]
    - Details  : apt-get upgrade
    - Solution : run package manager
      https://cisofy.com/lynis/controls/PKGS-7392/
      extra line beyond the cap

  * Check permissions of /etc/shadow [FILE-7524]
      https://cisofy.com/lynis/controls/FILE-7524/

  * Couldn't find 2 responsive nameservers [NETW-2705]

  Follow-up:
  ----------------------------
  - Show details of a test (lynis show details TEST-ID)
  - Check the logfile for all details (less /var/log/lynis.log)

================================================================================

  Lynis security scan details:

  Hardening index : 64 [############        ]
  Tests performed : 256
  Plugins enabled : 1

  Software components:
  - Firewall               [V]
  - Intrusion software     [X]
  - Malware scanner        [X]

================================================================================
`
