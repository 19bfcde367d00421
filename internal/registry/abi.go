package registry

// medicineRegistryABI is the fixed interface of the deployed MedicineRegistry
// contract. The contract evolved through two schema variants; this client
// speaks only the newer one, which carries the lot quantity and the
// responsible-party record.
const medicineRegistryABI = `[
  {
    "type": "function",
    "name": "registrarLote",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "nombre", "type": "string"},
      {"name": "principioActivo", "type": "string"},
      {"name": "fabricacion", "type": "uint256"},
      {"name": "vencimiento", "type": "uint256"},
      {"name": "codigoSerie", "type": "string"},
      {"name": "responsable", "type": "tuple", "components": [
        {"name": "nombre", "type": "string"},
        {"name": "dni", "type": "string"},
        {"name": "telefono", "type": "string"},
        {"name": "correo", "type": "string"}
      ]},
      {"name": "cantidad", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "transferirLote",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "loteId", "type": "bytes32"},
      {"name": "nuevoPropietario", "type": "address"},
      {"name": "cantidad", "type": "uint256"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "obtenerLote",
    "stateMutability": "view",
    "inputs": [{"name": "loteId", "type": "bytes32"}],
    "outputs": [
      {"name": "nombre", "type": "string"},
      {"name": "principioActivo", "type": "string"},
      {"name": "fabricacion", "type": "uint256"},
      {"name": "vencimiento", "type": "uint256"},
      {"name": "propietario", "type": "address"},
      {"name": "registradoEn", "type": "uint256"},
      {"name": "ultimaTransferencia", "type": "uint256"},
      {"name": "existe", "type": "bool"},
      {"name": "responsable", "type": "tuple", "components": [
        {"name": "nombre", "type": "string"},
        {"name": "dni", "type": "string"},
        {"name": "telefono", "type": "string"},
        {"name": "correo", "type": "string"}
      ]},
      {"name": "cantidad", "type": "uint256"}
    ]
  },
  {
    "type": "function",
    "name": "hasRole",
    "stateMutability": "view",
    "inputs": [
      {"name": "role", "type": "bytes32"},
      {"name": "account", "type": "address"}
    ],
    "outputs": [{"name": "", "type": "bool"}]
  },
  {
    "type": "function",
    "name": "asignarRol",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "role", "type": "bytes32"},
      {"name": "account", "type": "address"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "revocarRol",
    "stateMutability": "nonpayable",
    "inputs": [
      {"name": "role", "type": "bytes32"},
      {"name": "account", "type": "address"}
    ],
    "outputs": []
  },
  {
    "type": "function",
    "name": "ADMIN_ROLE",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "bytes32"}]
  },
  {
    "type": "function",
    "name": "FABRICANTE_ROLE",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "bytes32"}]
  },
  {
    "type": "function",
    "name": "DISTRIBUIDOR_ROLE",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "bytes32"}]
  },
  {
    "type": "function",
    "name": "FARMACIA_ROLE",
    "stateMutability": "view",
    "inputs": [],
    "outputs": [{"name": "", "type": "bytes32"}]
  },
  {
    "type": "event",
    "name": "LoteRegistrado",
    "inputs": [
      {"name": "loteId", "type": "bytes32", "indexed": true},
      {"name": "propietario", "type": "address", "indexed": true},
      {"name": "nombre", "type": "string", "indexed": false},
      {"name": "cantidad", "type": "uint256", "indexed": false},
      {"name": "fecha", "type": "uint256", "indexed": false}
    ]
  },
  {
    "type": "event",
    "name": "LoteTransferido",
    "inputs": [
      {"name": "loteId", "type": "bytes32", "indexed": true},
      {"name": "anterior", "type": "address", "indexed": true},
      {"name": "nuevo", "type": "address", "indexed": true},
      {"name": "cantidad", "type": "uint256", "indexed": false},
      {"name": "fecha", "type": "uint256", "indexed": false}
    ]
  }
]`
